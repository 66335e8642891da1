package ble

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/ftmazzone/bme680/internal/utils"
)

// CompanyID is the reserved test company identifier.
const CompanyID = 0xFFFF

type Options struct {
	Adapter  string // "hci0" by default
	Interval time.Duration
}

// Advertiser broadcasts the latest reading as non-connectable manufacturer data.
type Advertiser struct {
	adapter *bluetooth.Adapter
	adv     *bluetooth.Advertisement
	opts    Options
	logger  *slog.Logger

	mu      sync.Mutex
	payload [PayloadLen]byte
	started bool
}

func NewAdvertiser(opts Options, logger *slog.Logger) *Advertiser {
	if opts.Adapter == "" {
		opts.Adapter = "hci0"
	}
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	return &Advertiser{
		adapter: bluetooth.NewAdapter(opts.Adapter),
		opts:    opts,
		logger:  logger.With("component", "ble"),
	}
}

// Enable powers the adapter on.
func (a *Advertiser) Enable() error {
	a.logger.Info("ble: enabling adapter", "adapter", a.opts.Adapter, "company_id", "0x"+utils.Hex4(CompanyID))
	if err := a.adapter.Enable(); err != nil {
		return fmt.Errorf("ble enable (%s): %w", a.opts.Adapter, err)
	}
	a.mu.Lock()
	a.adv = a.adapter.DefaultAdvertisement()
	a.mu.Unlock()
	return nil
}

// Update replaces the advertised reading, restarting the advertisement.
func (a *Advertiser) Update(r Reading) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.adv == nil {
		return fmt.Errorf("ble: adapter not enabled")
	}

	EncodePayload(a.payload[:], r)
	if a.started {
		if err := a.adv.Stop(); err != nil {
			a.logger.Warn("ble: adv stop failed", "error", err)
		}
		a.started = false
	}
	// No local name: the payload already uses most of the 31 byte legacy PDU.
	err := a.adv.Configure(bluetooth.AdvertisementOptions{
		AdvertisementType: bluetooth.AdvertisingTypeNonConnInd,
		Interval:          bluetooth.NewDuration(a.opts.Interval),
		ManufacturerData: []bluetooth.ManufacturerDataElement{
			{CompanyID: CompanyID, Data: append([]byte(nil), a.payload[:]...)},
		},
	})
	if err != nil {
		return fmt.Errorf("ble configure: %w", err)
	}
	if err := a.adv.Start(); err != nil {
		return fmt.Errorf("ble start: %w", err)
	}
	a.started = true
	a.logger.Debug("ble: advertising", "reading_id", r.ReadingID, "data", utils.BytesToHex(a.payload[:]))
	return nil
}

// Stop ends advertising. It is a no-op when nothing is advertised.
func (a *Advertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.started {
		return nil
	}
	a.started = false
	return a.adv.Stop()
}
