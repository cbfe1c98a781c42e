package radio

import (
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"
)

// Nordic UART Service UUIDs. The peer subscribes to TX notifications to
// receive the combined record stream; RX is accepted and logged only.
var (
	nusServiceUUID = mustUUID("6e400001-b5a3-f393-e0a9-e50e24dcca9e")
	nusRxUUID      = mustUUID("6e400002-b5a3-f393-e0a9-e50e24dcca9e")
	nusTxUUID      = mustUUID("6e400003-b5a3-f393-e0a9-e50e24dcca9e")
)

func mustUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// NUSLink is a BLE peripheral exposing the Nordic UART Service. Chunks
// go out as notifications on the TX characteristic. The record stream
// has no length prefix at this layer: the peer knows the fixed record
// size out of band and reassembles chunks in arrival order.
type NUSLink struct {
	adapter *bluetooth.Adapter
	tx      bluetooth.Characteristic

	mu  sync.Mutex
	mtu int

	ready     chan struct{}
	readyOnce sync.Once
}

// NewNUS builds a NUS link. mtu is the payload bound used until the
// connection negotiates one.
func NewNUS(mtu int) *NUSLink {
	return &NUSLink{
		adapter: bluetooth.DefaultAdapter,
		mtu:     mtu,
		ready:   make(chan struct{}),
	}
}

// Start enables the adapter, registers the service and begins
// advertising under the given name. The ready gate opens on the first
// connection.
func (l *NUSLink) Start(name string) error {
	if err := l.adapter.Enable(); err != nil {
		return fmt.Errorf("radio: enable adapter: %w", err)
	}

	l.adapter.SetConnectHandler(func(device bluetooth.Address, connected bool) {
		if connected {
			log.Info("radio: central connected")
			l.readyOnce.Do(func() { close(l.ready) })
		} else {
			log.Info("radio: central disconnected")
		}
	})

	err := l.adapter.AddService(&bluetooth.Service{
		UUID: nusServiceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &l.tx,
				UUID:   nusTxUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission | bluetooth.CharacteristicReadPermission,
			},
			{
				UUID:  nusRxUUID,
				Flags: bluetooth.CharacteristicWritePermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
				WriteEvent: func(client bluetooth.Connection, offset int, value []byte) {
					log.WithField("len", len(value)).Debug("radio: inbound data ignored")
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("radio: add NUS service: %w", err)
	}

	adv := l.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []bluetooth.UUID{nusServiceUUID},
	}); err != nil {
		return fmt.Errorf("radio: configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return fmt.Errorf("radio: start advertising: %w", err)
	}
	log.WithField("name", name).Info("radio: advertising")
	return nil
}

// SetMTU records a newly negotiated transmission unit.
func (l *NUSLink) SetMTU(mtu int) {
	l.mu.Lock()
	l.mtu = mtu
	l.mu.Unlock()
}

// MTU implements Link.
func (l *NUSLink) MTU() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.mtu
}

// Send implements Link: one chunk, one notification.
func (l *NUSLink) Send(p []byte) error {
	if _, err := l.tx.Write(p); err != nil {
		return fmt.Errorf("radio: notify: %w", err)
	}
	return nil
}

// Ready implements Link.
func (l *NUSLink) Ready() <-chan struct{} { return l.ready }
