// Command bowlink runs the full acquisition and streaming pipeline:
// sensor hub over a serial-attached bus, synthetic audio source, BLE
// NUS link out.
package main

import (
	"flag"
	"time"

	log "github.com/sirupsen/logrus"

	"bowlink/audio"
	"bowlink/battery"
	"bowlink/bno08x"
	"bowlink/bus"
	"bowlink/config"
	"bowlink/pipeline"
	"bowlink/radio"
	"bowlink/shtp"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.WithError(err).Fatal("load config")
	}
	if lvl, err := log.ParseLevel(cfg.Log.Level); err == nil {
		log.SetLevel(lvl)
	}

	if cfg.Bus.Kind != "serial" {
		log.WithField("kind", cfg.Bus.Kind).
			Fatal("only the serial bus is available on a host build; i2c/spi need an embedded target")
	}
	hubBus, err := bus.OpenSerial(bus.SerialConfig{Port: cfg.Bus.Port, Baud: cfg.Bus.Baud})
	if err != nil {
		log.WithError(err).Fatal("open hub bus")
	}
	defer hubBus.Close()

	dev := bno08x.New(hubBus, bno08x.Config{
		ReportIntervalUs: cfg.IMU.ReportIntervalUs,
	})
	svc := shtp.NewService(dev, dev)
	if err := dev.Init(svc); err != nil {
		log.WithError(err).Fatal("init sensor hub")
	}
	imuReady := make(chan struct{})
	close(imuReady)

	link := radio.NewNUS(cfg.Radio.MTU)
	if err := link.Start(cfg.Device.Name); err != nil {
		log.WithError(err).Fatal("start radio")
	}

	blockSize := pipeline.RecordTotal(cfg.Audio.BlockBytes)
	pool := audio.NewPool(blockSize, cfg.Audio.BlockCount)
	tone := audio.NewTone(pool, cfg.Audio.BlockBytes, cfg.Audio.SampleRate, cfg.Audio.ToneHz, cfg.Audio.BlockCount)

	pipe := pipeline.NewPipe(cfg.IMU.PipeRecords * pipeline.RecordSize)
	sampler := pipeline.NewSampler(dev, pipe, imuReady,
		time.Duration(cfg.IMU.SampleIntervalUs)*time.Microsecond)
	delivery := pipeline.NewDelivery(tone, pool, pipe, battery.StaticProvider(100), link, cfg.Audio.BlockBytes)

	log.WithFields(log.Fields{
		"record": blockSize,
		"mtu":    cfg.Radio.MTU,
	}).Info("pipeline up")

	go tone.Run()
	go sampler.Run()
	go delivery.Run()

	// The threads run until power-off; there is no shutdown path.
	select {}
}
