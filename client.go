package bacnet

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/edgeo-scada/bacnet/application"
	"github.com/edgeo-scada/bacnet/bacnetip"
	"github.com/edgeo-scada/bacnet/encoding"
	"github.com/edgeo-scada/bacnet/internal/transport"
	"github.com/edgeo-scada/bacnet/network"
)

// ConnectionState represents the client connection state
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// IAmHandler is called for every I-Am the client receives
type IAmHandler func(device *DeviceInfo)

// Client is a BACnet/IP discovery client
type Client struct {
	opts      *clientOptions
	transport *transport.UDPTransport

	state atomic.Int32

	// Discovered devices
	devicesMu sync.RWMutex
	devices   map[uint32]*DeviceInfo

	// I-Am listeners
	handlersMu sync.RWMutex
	handlers   []IAmHandler

	// Start of the current discovery round, unix nanoseconds; 0 when idle
	discoveryStart atomic.Int64

	// Metrics
	metrics *Metrics

	// Logger
	logger *slog.Logger

	// Receiver goroutine
	receiverCtx    context.Context
	receiverCancel context.CancelFunc
	receiverDone   chan struct{}
}

// NewClient creates a new BACnet client
func NewClient(opts ...Option) (*Client, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	c := &Client{
		opts:    options,
		devices: make(map[uint32]*DeviceInfo),
		metrics: NewMetrics(),
		logger:  options.logger,
	}

	// Create transport
	localAddr := options.localAddress
	if localAddr == "" {
		localAddr = fmt.Sprintf(":%d", options.port)
	}
	c.transport = transport.NewUDPTransport(localAddr, options.port)
	c.transport.SetReadTimeout(options.timeout)
	c.transport.SetWriteTimeout(options.timeout)
	if options.broadcastAddress != "" {
		if err := c.transport.SetBroadcastAddress(options.broadcastAddress); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Connect opens the BACnet client connection
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSwap(int32(StateDisconnected), int32(StateConnecting)) {
		return ErrAlreadyConnected
	}

	c.metrics.ConnectAttempts.Inc()

	if err := c.transport.Open(ctx); err != nil {
		c.state.Store(int32(StateDisconnected))
		c.metrics.ConnectFailures.Inc()
		return fmt.Errorf("open transport: %w", err)
	}

	// Start receiver goroutine
	c.receiverCtx, c.receiverCancel = context.WithCancel(context.Background())
	c.receiverDone = make(chan struct{})
	go c.receiver()

	c.state.Store(int32(StateConnected))
	c.metrics.ConnectSuccesses.Inc()

	c.logger.Info("connected",
		slog.String("local_addr", c.transport.LocalAddr().String()),
	)

	return nil
}

// Close closes the BACnet client connection
func (c *Client) Close() error {
	if c.state.Load() == int32(StateDisconnected) {
		return nil
	}

	c.state.Store(int32(StateDisconnected))
	c.metrics.Disconnects.Inc()

	// Stop receiver
	if c.receiverCancel != nil {
		c.receiverCancel()
		<-c.receiverDone
	}

	if err := c.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}

	c.logger.Info("disconnected")
	return nil
}

// State returns the current connection state
func (c *Client) State() ConnectionState {
	return ConnectionState(c.state.Load())
}

// Metrics returns the client metrics
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// OnIAm registers a handler called for every received I-Am
func (c *Client) OnIAm(handler IAmHandler) {
	c.handlersMu.Lock()
	c.handlers = append(c.handlers, handler)
	c.handlersMu.Unlock()
}

// receiver handles incoming packets
func (c *Client) receiver() {
	defer close(c.receiverDone)

	for {
		select {
		case <-c.receiverCtx.Done():
			return
		default:
		}

		data, addr, err := c.transport.ReceiveWithTimeout(100 * time.Millisecond)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			if c.transport.IsClosed() {
				return
			}
			c.logger.Debug("receive error", slog.String("error", err.Error()))
			continue
		}

		c.metrics.BytesReceived.Add(int64(len(data)))
		c.metrics.RecordActivity()

		c.handleFrame(data, addr)
	}
}

// handleFrame filters one datagram through the zero-copy views and fully
// decodes only the unconfirmed requests the client acts on.
func (c *Client) handleFrame(data []byte, addr *net.UDPAddr) {
	c.metrics.FramesReceived.Inc()

	frame, err := bacnetip.BVLCSliceFrom(data)
	if err != nil {
		c.metrics.DecodeErrors.Inc()
		c.logger.Debug("invalid BVLC", slog.String("error", err.Error()))
		return
	}

	npdu, err := frame.NPDU()
	if err != nil {
		c.metrics.DecodeErrors.Inc()
		c.logger.Debug("invalid NPDU", slog.String("error", err.Error()))
		return
	}
	if npdu.IsNetworkMessage() {
		c.metrics.FramesFiltered.Inc()
		return
	}

	apdu, err := npdu.APDU()
	if err != nil {
		c.metrics.DecodeErrors.Inc()
		c.logger.Debug("invalid APDU", slog.String("error", err.Error()))
		return
	}
	if apdu.Type() != application.PDUTypeUnconfirmedRequest {
		c.metrics.FramesFiltered.Inc()
		return
	}

	svc, err := apdu.Service()
	if err != nil {
		// Services the codec does not decode are routine on a busy network
		c.metrics.FramesFiltered.Inc()
		return
	}

	switch req := svc.(type) {
	case *application.IAm:
		c.handleIAm(req, npdu, addr)
	case *application.WhoIs:
		c.handleWhoIs(req, addr)
	}
}

// handleIAm records the announcing device and notifies listeners
func (c *Client) handleIAm(iam *application.IAm, npdu network.NPDUSlice, addr *net.UDPAddr) {
	c.metrics.IAmReceived.Inc()

	// Routed devices keep their source address, local ones their UDP origin
	var deviceAddr Address
	if src, ok := npdu.Source(); ok {
		addrCopy := make([]byte, len(src.Addr))
		copy(addrCopy, src.Addr)
		deviceAddr = Address{Net: src.Net, Addr: addrCopy}
	} else {
		deviceAddr = Address{Addr: addr.IP.To4()}
	}

	device := &DeviceInfo{
		ObjectID:     iam.Device,
		Address:      deviceAddr,
		MaxAPDU:      iam.MaxAPDU,
		Segmentation: iam.Segmentation,
		VendorID:     iam.VendorID,
		LastSeen:     time.Now(),
	}

	c.devicesMu.Lock()
	_, exists := c.devices[device.ID()]
	c.devices[device.ID()] = device
	c.devicesMu.Unlock()

	if !exists {
		c.metrics.DevicesDiscovered.Inc()
		if start := c.discoveryStart.Load(); start != 0 {
			c.metrics.DiscoveryLatency.Record(time.Since(time.Unix(0, start)))
		}
	}

	c.handlersMu.RLock()
	handlers := c.handlers
	c.handlersMu.RUnlock()
	for _, handler := range handlers {
		handler(device)
	}

	c.logger.Debug("device discovered",
		slog.Uint64("device_id", uint64(device.ID())),
		slog.String("address", device.Address.String()),
		slog.Uint64("vendor_id", uint64(device.VendorID)),
	)
}

// handleWhoIs answers matching requests with a unicast I-Am when the
// responder is enabled
func (c *Client) handleWhoIs(req *application.WhoIs, addr *net.UDPAddr) {
	c.metrics.WhoIsReceived.Inc()

	if !c.opts.respondToWhoIs || c.opts.deviceID == 0xFFFFFFFF {
		return
	}
	if !req.Matches(c.opts.deviceID) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.timeout)
	defer cancel()

	if err := c.sendIAm(ctx, addr); err != nil {
		c.logger.Warn("failed to answer who-is",
			slog.String("peer", addr.String()),
			slog.String("error", err.Error()),
		)
	}
}

// localIAm builds the I-Am for the local device
func (c *Client) localIAm() *application.IAm {
	return &application.IAm{
		Device:       encoding.NewObjectIdentifier(encoding.ObjectTypeDevice, c.opts.deviceID),
		MaxAPDU:      c.opts.maxAPDU,
		Segmentation: c.opts.segmentation,
		VendorID:     c.opts.vendorID,
	}
}

// sendIAm sends the local I-Am. A nil addr broadcasts it.
func (c *Client) sendIAm(ctx context.Context, addr *net.UDPAddr) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}

	apdu, err := application.NewUnconfirmedRequest(c.localIAm())
	if err != nil {
		return err
	}

	var frame *bacnetip.BVLC
	if addr == nil {
		frame = bacnetip.NewBroadcast(network.New(apdu))
	} else {
		frame = bacnetip.NewUnicast(network.New(apdu))
	}

	packet, err := frame.EncodeBytes()
	if err != nil {
		return err
	}

	if addr == nil {
		err = c.transport.Broadcast(ctx, packet)
	} else {
		err = c.transport.Send(ctx, addr, packet)
	}
	if err != nil {
		return fmt.Errorf("send i-am: %w", err)
	}

	c.metrics.IAmSent.Inc()
	c.metrics.FramesSent.Inc()
	c.metrics.BytesSent.Add(int64(len(packet)))
	return nil
}

// AnnounceIAm broadcasts an unsolicited I-Am for the local device
func (c *Client) AnnounceIAm(ctx context.Context) error {
	if c.opts.deviceID == 0xFFFFFFFF {
		return fmt.Errorf("bacnet: local device ID not configured")
	}
	return c.sendIAm(ctx, nil)
}

// WhoIs broadcasts a Who-Is request and collects the devices that answer
// within the discovery timeout
func (c *Client) WhoIs(ctx context.Context, opts ...DiscoverOption) ([]*DeviceInfo, error) {
	if c.State() != StateConnected {
		return nil, ErrNotConnected
	}

	options := defaultDiscoverOptions()
	for _, opt := range opts {
		opt(options)
	}

	whois := &application.WhoIs{}
	if options.LowLimit != nil && options.HighLimit != nil {
		whois.Limits = &application.InstanceRange{
			Low:  *options.LowLimit,
			High: *options.HighLimit,
		}
	}

	apdu, err := application.NewUnconfirmedRequest(whois)
	if err != nil {
		return nil, err
	}
	npdu := network.New(apdu)
	npdu.Destination = &network.Destination{Net: network.GlobalBroadcast, HopCount: 255}

	packet, err := bacnetip.NewBroadcast(npdu).EncodeBytes()
	if err != nil {
		return nil, err
	}

	c.discoveryStart.Store(time.Now().UnixNano())
	c.metrics.ActiveDiscoveries.Inc()
	defer func() {
		c.discoveryStart.Store(0)
		c.metrics.ActiveDiscoveries.Dec()
	}()

	if err := c.transport.Broadcast(ctx, packet); err != nil {
		return nil, fmt.Errorf("send who-is: %w", err)
	}

	c.metrics.WhoIsSent.Inc()
	c.metrics.FramesSent.Inc()
	c.metrics.BytesSent.Add(int64(len(packet)))

	// Collect answers for the discovery window
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(options.Timeout):
	}

	c.devicesMu.RLock()
	devices := make([]*DeviceInfo, 0, len(c.devices))
	for _, dev := range c.devices {
		if whois.Matches(dev.ID()) {
			devices = append(devices, dev)
		}
	}
	c.devicesMu.RUnlock()

	return devices, nil
}

// GetDevice returns information about a discovered device
func (c *Client) GetDevice(deviceID uint32) (*DeviceInfo, bool) {
	c.devicesMu.RLock()
	defer c.devicesMu.RUnlock()
	dev, ok := c.devices[deviceID]
	return dev, ok
}

// Devices returns all discovered devices
func (c *Client) Devices() []*DeviceInfo {
	c.devicesMu.RLock()
	defer c.devicesMu.RUnlock()
	devices := make([]*DeviceInfo, 0, len(c.devices))
	for _, dev := range c.devices {
		devices = append(devices, dev)
	}
	return devices
}
