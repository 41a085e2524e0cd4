// Package sja1105 is the root handle tying together the register map,
// transport, table store, static-configuration engine, dynamic
// reconfiguration, port control and management-route subpackages into
// the single public driver surface a host links against. Grounded on
// drivers/ltc4015's Device{bus,Address,...}+New/Configure shape, scaled
// up from one I2C register set to a composite handle that owns several
// collaborating subsystems under one mutex (spec.md §3 "Device handle",
// §5 "Concurrency & resource model").
package sja1105

import (
	"sync/atomic"

	"github.com/jangala-dev/sja1105-go/caps"
	"github.com/jangala-dev/sja1105-go/errcode"
	"github.com/jangala-dev/sja1105-go/eventbus"
	"github.com/jangala-dev/sja1105-go/mgmtroute"
	"github.com/jangala-dev/sja1105-go/portdesc"
	"github.com/jangala-dev/sja1105-go/regmap"
	"github.com/jangala-dev/sja1105-go/staticconf"
	"github.com/jangala-dev/sja1105-go/stats"
	"github.com/jangala-dev/sja1105-go/tablestore"
	"github.com/jangala-dev/sja1105-go/transport"
)

// Config is the handle's immutable board-level configuration (spec.md §6
// "Handle configuration fields").
type Config struct {
	Variant           regmap.Variant
	Ports             [5]portdesc.Descriptor
	MutexTimeoutMs    uint32
	MgmtTimeoutMs     uint32
	HostPort          int
	SkewClocks        bool
	SwitchID          uint8 // 3-bit
	PortsStartEnabled bool
}

// Validate checks every per-port descriptor and the host-port index.
func (c Config) Validate() error {
	if c.HostPort < 0 || c.HostPort > 4 {
		return &errcode.E{C: errcode.ParameterError, Op: "sja1105.Config.Validate", Msg: "host port out of range"}
	}
	if c.SwitchID > 0x7 {
		return &errcode.E{C: errcode.ParameterError, Op: "sja1105.Config.Validate", Msg: "switch id exceeds 3 bits"}
	}
	hasPort4 := c.Variant.HasPort4()
	for p := 0; p < 5; p++ {
		if p == 4 && !hasPort4 {
			continue
		}
		d := c.Ports[p]
		if !d.Configured {
			continue
		}
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// PortConfigure sets port's descriptor fields and marks it configured.
// Rejects a port that is already configured (spec.md §6
// "port_configure(cfg, port, interface, role, rmii_refclk, speed,
// voltage)").
func (c *Config) PortConfigure(port int, iface portdesc.Interface, role portdesc.Role, rmiiRefclk bool, speed portdesc.Speed, voltage portdesc.Voltage) error {
	if port < 0 || port > 4 {
		return &errcode.E{C: errcode.ParameterError, Op: "sja1105.PortConfigure", Msg: "port out of range"}
	}
	if port == 4 && !c.Variant.HasPort4() {
		return &errcode.E{C: errcode.ParameterError, Op: "sja1105.PortConfigure", Msg: "variant has no port 4"}
	}
	if c.Ports[port].Configured {
		return &errcode.E{C: errcode.AlreadyConfigured, Op: "sja1105.PortConfigure", Msg: "port already configured"}
	}
	d := portdesc.Descriptor{
		Port:             port,
		Interface:        iface,
		Role:             role,
		Speed:            speed,
		Voltage:          voltage,
		OutputRMIIRefclk: rmiiRefclk,
		Configured:       true,
	}
	if err := d.Validate(); err != nil {
		return err
	}
	c.Ports[port] = d
	return nil
}

// Handle is the single logical instance of the driver (spec.md §3
// "Device handle"). The zero value is not usable; construct with New.
type Handle struct {
	cfg   Config
	caps  caps.Set
	store *tablestore.Store
	tr    *transport.Transport
	mgmt  *mgmtroute.Cache
	stats *stats.Counters
	bus   *eventbus.Bus

	initialised atomic.Bool
}

// New builds a Handle from a validated configuration and capability set.
// The handle is not usable until Init succeeds.
func New(cfg Config, cs caps.Set, bus *eventbus.Bus) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cs.Validate(); err != nil {
		return nil, err
	}
	h := &Handle{
		cfg:   cfg,
		caps:  cs,
		stats: &stats.Counters{},
		bus:   bus,
	}
	h.store = tablestore.New(cs.Allocator, cs.CRC)
	h.tr = transport.New(cs.SPI, cs.CS, cs.RST, cs.Clock, h.stats)
	h.mgmt = mgmtroute.New(cs.Clock, cfg.MgmtTimeoutMs, h.stats)
	return h, nil
}

// Stats returns a point-in-time snapshot of the driver's event counters.
func (h *Handle) Stats() stats.Snapshot { return h.stats.Snapshot() }

// Initialised reports the handle's usability flag with acquire semantics
// (spec.md §5: "other threads observing initialised=true are guaranteed
// to see a coherent handle").
func (h *Handle) Initialised() bool { return h.initialised.Load() }

// withMutex takes the mutex capability, runs fn, and always releases it,
// even on panic, before returning fn's error (spec.md §5: "releases it on
// every exit path, including early-error and revert paths").
func (h *Handle) withMutex(fn func() error) error {
	if err := h.caps.Mutex.Take(h.cfg.MutexTimeoutMs); err != nil {
		return err
	}
	defer h.caps.Mutex.Give()
	return fn()
}

// Init uploads image, brings the switch out of reset first, and marks
// the handle initialised on success (spec.md §2 "Data flow for initial
// bring-up").
func (h *Handle) Init(image []byte) error {
	if h.initialised.Load() {
		return &errcode.E{C: errcode.AlreadyConfigured, Op: "sja1105.Init", Msg: "handle already initialised"}
	}
	return h.withMutex(func() error {
		h.tr.FullReset()
		if err := staticconf.Load(h.store, image, staticconf.Config{
			Variant:           h.cfg.Variant,
			HostPort:          h.cfg.HostPort,
			Ports:             h.cfg.Ports,
			PortsStartEnabled: h.cfg.PortsStartEnabled,
			SkewClocks:        h.cfg.SkewClocks,
		}); err != nil {
			return err
		}
		if err := staticconf.Write(h.tr, h.store, true); err != nil {
			return err
		}
		h.stats.IncStaticConfUploads()
		h.initialised.Store(true)
		return nil
	})
}

// Deinit tears the handle down. hard additionally pulses the RST pin;
// clearCounters resets the event counters. Always clears initialised,
// even if the handle was never successfully initialised (spec.md §6
// "deinit(handle, hard, clear_counters)").
func (h *Handle) Deinit(hard bool, clearCounters bool) error {
	return h.withMutex(func() error {
		h.initialised.Store(false)
		if hard {
			h.tr.FullReset()
		}
		h.store.Reset()
		h.caps.Allocator.FreeAll()
		if clearCounters {
			h.stats = &stats.Counters{}
			h.tr = transport.New(h.caps.SPI, h.caps.CS, h.caps.RST, h.caps.Clock, h.stats)
			h.mgmt = mgmtroute.New(h.caps.Clock, h.cfg.MgmtTimeoutMs, h.stats)
		}
		return nil
	})
}

// Reinit re-uploads a (possibly new) image over an already-deinitialised
// or still-initialised handle (spec.md §6 "reinit(handle, image,
// image_len)"; "any of init's" error kinds).
func (h *Handle) Reinit(image []byte) error {
	if h.initialised.Load() {
		if err := h.Deinit(false, false); err != nil {
			return err
		}
	}
	return h.Init(image)
}

func (h *Handle) requireInitialised(op string) error {
	if !h.initialised.Load() {
		return &errcode.E{C: errcode.NotConfigured, Op: op, Msg: "handle not initialised"}
	}
	return nil
}

func (h *Handle) publish(e eventbus.Event) { h.bus.Publish(e) }
