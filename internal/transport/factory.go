package transport

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/gopacket/layers"
	"github.com/mitchellh/mapstructure"

	"firestige.xyz/p4calc/internal/config"
	"firestige.xyz/p4calc/internal/core"
)

// OpenFunc constructs a Conn from the transport section of the configuration.
type OpenFunc func(cfg config.TransportConfig, link config.LinkConfig) (Conn, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]OpenFunc)
)

// Register makes a Conn implementation available under name. It panics on duplicates.
func Register(name string, fn OpenFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("transport: Register called twice for " + name)
	}
	registry[name] = fn
}

// Names lists the registered implementations.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OpenConn builds the configured Conn, wrapped in a pcap Recorder when cfg.PcapOut is set.
func OpenConn(cfg config.TransportConfig, link config.LinkConfig) (Conn, error) {
	registryMu.RLock()
	fn, ok := registry[cfg.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", core.ErrTransportUnknown, cfg.Type, Names())
	}

	conn, err := fn(cfg, link)
	if err != nil {
		return nil, err
	}
	if cfg.PcapOut == "" {
		return conn, nil
	}
	rec, err := OpenRecorder(conn, cfg.PcapOut)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return rec, nil
}

// Open builds the configured Transport.
func Open(cfg config.TransportConfig, link config.LinkConfig) (*Endpoint, error) {
	conn, err := OpenConn(cfg, link)
	if err != nil {
		return nil, err
	}
	return NewEndpoint(conn, layers.EthernetType(link.EtherType)), nil
}

// DecodeOptions decodes the free-form options map of a transport into out.
// Durations may be given as strings ("50ms"); unknown keys are rejected.
func DecodeOptions(in map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(in); err != nil {
		return fmt.Errorf("%w: transport.options: %v", core.ErrConfigInvalid, err)
	}
	return nil
}
