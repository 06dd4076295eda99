package console

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/afroash/wx-monitor/internal/models"
)

func TestSimulatedStation_Read(t *testing.T) {
	station := NewSimulatedStation()
	defer station.Close()

	pkt, err := station.Read()
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if !pkt.IsValid() {
		t.Error("simulated packet has no timestamp")
	}
	if pkt.Units != models.UnitMetricWX {
		t.Errorf("Units = %v, want %v", pkt.Units, models.UnitMetricWX)
	}

	temp, ok := pkt.Get(models.OutTemp)
	if !ok {
		t.Fatal("simulated packet missing outTemp")
	}
	if temp < -20.0 || temp > 45.0 {
		t.Errorf("outTemp = %v, outside simulator bounds", temp)
	}

	dir, ok := pkt.Get(models.WindDir)
	if !ok {
		t.Fatal("simulated packet missing windDir")
	}
	if dir < 0 || dir >= 360 {
		t.Errorf("windDir = %v, want [0, 360)", dir)
	}

	if hum, _ := pkt.Get(models.OutHumidity); hum < 10.0 || hum > 100.0 {
		t.Errorf("outHumidity = %v, outside simulator bounds", hum)
	}
}

func TestSimulatedStation_ValuesWander(t *testing.T) {
	station := NewSimulatedStation()
	defer station.Close()

	changed := false
	first, _ := station.Read()
	base, _ := first.Get(models.Barometer)
	for i := 0; i < 20; i++ {
		pkt, _ := station.Read()
		if v, _ := pkt.Get(models.Barometer); v != base {
			changed = true
			break
		}
	}
	if !changed {
		t.Error("barometer never moved over 20 readings")
	}
}

func TestReader_ReadOnce(t *testing.T) {
	reader := NewReader(NewSimulatedStation(), time.Second, zerolog.Nop())
	defer reader.Close()

	pkt, err := reader.ReadOnce()
	if err != nil {
		t.Fatalf("ReadOnce failed: %v", err)
	}
	if !pkt.IsValid() {
		t.Error("ReadOnce returned invalid packet")
	}
}

func TestReader_PublishesPeriodically(t *testing.T) {
	reader := NewReader(NewSimulatedStation(), 20*time.Millisecond, zerolog.Nop())
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go reader.Start(ctx)

	count := 0
	for {
		select {
		case <-reader.Packets():
			count++
			if count >= 2 {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("received %d packets, want at least 2", count)
		}
	}
}
