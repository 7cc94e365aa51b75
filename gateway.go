package lit

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0x5487/lit-engine/protocol"
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// MatchingGateway routes order entry commands to per-instrument actors.
// Instruments share nothing and run on independent goroutines; the gateway
// never coordinates matching across them.
type MatchingGateway struct {
	isShutdown  atomic.Bool
	instruments sync.Map // uint32 -> *Instrument
	events      EventPublisher
	trades      TradePublisher
	serializer  protocol.Serializer
	metrics     *Metrics
}

// GatewayOption configures a MatchingGateway.
type GatewayOption func(*MatchingGateway)

// WithGatewayMetrics wires one Metrics instance into every instrument the
// gateway creates.
func WithGatewayMetrics(m *Metrics) GatewayOption {
	return func(g *MatchingGateway) {
		g.metrics = m
	}
}

// NewMatchingGateway creates a gateway publishing events and trades to the
// given sinks.
func NewMatchingGateway(events EventPublisher, trades TradePublisher, opts ...GatewayOption) *MatchingGateway {
	if events == nil {
		events = NewDiscardEventPublisher()
	}
	if trades == nil {
		trades = NewDiscardTradePublisher()
	}

	gateway := &MatchingGateway{
		events:     events,
		trades:     trades,
		serializer: &protocol.DefaultJSONSerializer{},
	}

	for _, opt := range opts {
		opt(gateway)
	}

	return gateway
}

// EnqueueCommand routes the command to the owning instrument. Instrument
// management commands are handled by the gateway itself.
func (g *MatchingGateway) EnqueueCommand(ctx context.Context, cmd *protocol.Command) error {
	if g.isShutdown.Load() {
		return ErrShutdown
	}

	if cmd.Type == protocol.CmdCreateInstrument {
		return g.handleCreateInstrument(cmd)
	}

	instrument := g.Instrument(cmd.SecurityID)
	if instrument == nil {
		return ErrUnknownInstrument
	}

	return instrument.EnqueueCommand(ctx, cmd)
}

// CreateInstrument lists a new instrument with the given tick size
// (empty string keeps the default 0.01).
func (g *MatchingGateway) CreateInstrument(securityID uint32, tickSize string) error {
	payload := &protocol.CreateInstrumentCommand{
		SecurityID: securityID,
		TickSize:   tickSize,
	}
	bytes, err := g.serializer.Marshal(payload)
	if err != nil {
		return err
	}

	return g.EnqueueCommand(context.Background(), &protocol.Command{
		SecurityID:    securityID,
		CorrelationID: xid.New().String(),
		Type:          protocol.CmdCreateInstrument,
		Payload:       bytes,
	})
}

// PlaceOrder submits an order entry command for the given instrument.
func (g *MatchingGateway) PlaceOrder(ctx context.Context, securityID uint32, cmd *protocol.PlaceOrderCommand) error {
	return g.enqueuePayload(ctx, securityID, protocol.CmdPlaceOrder, cmd)
}

// CancelOrder submits a cancellation for the given instrument.
func (g *MatchingGateway) CancelOrder(ctx context.Context, securityID uint32, cmd *protocol.CancelOrderCommand) error {
	return g.enqueuePayload(ctx, securityID, protocol.CmdCancelOrder, cmd)
}

// AmendOrderPrice submits a price amendment for the given instrument.
func (g *MatchingGateway) AmendOrderPrice(ctx context.Context, securityID uint32, cmd *protocol.AmendPriceCommand) error {
	return g.enqueuePayload(ctx, securityID, protocol.CmdAmendPrice, cmd)
}

// AmendOrderQuantity submits a quantity amendment for the given instrument.
func (g *MatchingGateway) AmendOrderQuantity(ctx context.Context, securityID uint32, cmd *protocol.AmendQuantityCommand) error {
	return g.enqueuePayload(ctx, securityID, protocol.CmdAmendQuantity, cmd)
}

// SetMarketState submits a session state transition for the given
// instrument.
func (g *MatchingGateway) SetMarketState(ctx context.Context, securityID uint32, state MarketState) error {
	return g.enqueuePayload(ctx, securityID, protocol.CmdSetMarketState, &protocol.SetMarketStateCommand{
		State:     state,
		Timestamp: time.Now().UnixNano(),
	})
}

func (g *MatchingGateway) enqueuePayload(ctx context.Context, securityID uint32, cmdType protocol.CommandType, payload any) error {
	bytes, err := g.serializer.Marshal(payload)
	if err != nil {
		return err
	}

	return g.EnqueueCommand(ctx, &protocol.Command{
		SecurityID:    securityID,
		CorrelationID: xid.New().String(),
		Type:          cmdType,
		Payload:       bytes,
	})
}

// Instrument retrieves the actor for a specific instrument.
// Returns nil if the instrument does not exist.
func (g *MatchingGateway) Instrument(securityID uint32) *Instrument {
	ins, found := g.instruments.Load(securityID)
	if !found {
		return nil
	}

	instrument, _ := ins.(*Instrument)
	return instrument
}

// Shutdown gracefully shuts down every instrument in parallel. It blocks
// until all of them drained or the context is cancelled.
func (g *MatchingGateway) Shutdown(ctx context.Context) error {
	g.isShutdown.Store(true)

	var wg sync.WaitGroup
	var errs []error
	var errMu sync.Mutex

	g.instruments.Range(func(key, value any) bool {
		wg.Add(1)
		go func(instrument *Instrument) {
			defer wg.Done()
			if err := instrument.Shutdown(ctx); err != nil {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			}
		}(value.(*Instrument))
		return true
	})

	wg.Wait()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (g *MatchingGateway) handleCreateInstrument(cmd *protocol.Command) error {
	payload := &protocol.CreateInstrumentCommand{}
	if err := g.serializer.Unmarshal(cmd.Payload, payload); err != nil {
		logger.Error("failed to unmarshal CreateInstrument command", "error", err)
		return nil // cannot process invalid payload
	}

	if _, exists := g.instruments.Load(payload.SecurityID); exists {
		logger.Warn("instrument already exists", "security_id", payload.SecurityID)
		return nil
	}

	opts := []EngineOption{WithEventPublisher(g.events)}
	if g.metrics != nil {
		opts = append(opts, WithMetrics(g.metrics))
	}
	if payload.TickSize != "" {
		size, err := decimal.NewFromString(payload.TickSize)
		if err == nil {
			opts = append(opts, WithTickSize(size))
		}
	}

	instrument := NewInstrument(payload.SecurityID, g.trades, opts...)
	g.instruments.Store(payload.SecurityID, instrument)

	go func() {
		_ = instrument.Start()
	}()

	return nil
}

// snapshotResult wraps a snapshot result with potential error.
type snapshotResult struct {
	snap *EngineSnapshot
	err  error
}

// takeSnapshot orchestrates the snapshot process across all instruments and
// streams results on the returned channel.
func (g *MatchingGateway) takeSnapshot() chan snapshotResult {
	ch := make(chan snapshotResult)

	go func() {
		defer close(ch)
		var wg sync.WaitGroup

		g.instruments.Range(func(key, value any) bool {
			instrument := value.(*Instrument)
			wg.Add(1)
			go func(ins *Instrument) {
				defer wg.Done()
				snap, err := ins.TakeSnapshot()
				if err != nil {
					ch <- snapshotResult{err: fmt.Errorf("snapshot failed for instrument %d: %w", ins.SecurityID(), err)}
					return
				}
				if snap != nil {
					ch <- snapshotResult{snap: snap}
				}
			}(instrument)
			return true
		})

		wg.Wait()
	}()

	return ch
}

// TakeSnapshot captures a consistent snapshot of every instrument and writes
// it to the given directory: snapshot.bin (segments + footer) and
// metadata.json. The directory is swapped in atomically.
func (g *MatchingGateway) TakeSnapshot(outputDir string) (*SnapshotMetadata, error) {
	tmpDir := outputDir + ".tmp"
	if err := os.RemoveAll(tmpDir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return nil, err
	}

	snapChan := g.takeSnapshot()

	binPath := filepath.Join(tmpDir, "snapshot.bin")
	binFile, err := os.Create(binPath)
	if err != nil {
		return nil, err
	}

	segments := make([]InstrumentSegment, 0)
	currentOffset := int64(0)
	var snapshotErrors []error

	for result := range snapChan {
		if result.err != nil {
			snapshotErrors = append(snapshotErrors, result.err)
			continue
		}

		data, err := json.Marshal(result.snap)
		if err != nil {
			binFile.Close()
			return nil, err
		}

		n, err := binFile.Write(data)
		if err != nil {
			binFile.Close()
			return nil, err
		}

		segments = append(segments, InstrumentSegment{
			SecurityID: result.snap.SecurityID,
			Offset:     currentOffset,
			Length:     int64(n),
			Checksum:   crc32.ChecksumIEEE(data),
		})

		currentOffset += int64(n)
	}

	if len(snapshotErrors) > 0 {
		binFile.Close()
		return nil, errors.Join(snapshotErrors...)
	}

	footer := SnapshotFileFooter{Instruments: segments}
	footerData, err := json.Marshal(footer)
	if err != nil {
		binFile.Close()
		return nil, err
	}

	if _, err := binFile.Write(footerData); err != nil {
		binFile.Close()
		return nil, err
	}

	if err := binary.Write(binFile, binary.BigEndian, uint32(len(footerData))); err != nil {
		binFile.Close()
		return nil, err
	}

	if err := binFile.Sync(); err != nil {
		binFile.Close()
		return nil, err
	}
	if err := binFile.Close(); err != nil {
		return nil, err
	}

	snapshotChecksum, err := calculateFileCRC32(binPath)
	if err != nil {
		return nil, err
	}

	meta := &SnapshotMetadata{
		SchemaVersion:    SnapshotSchemaVersion,
		Timestamp:        time.Now().UnixNano(),
		EngineVersion:    EngineVersion,
		SnapshotChecksum: snapshotChecksum,
	}

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, err
	}

	metaPath := filepath.Join(tmpDir, "metadata.json")
	if err := os.WriteFile(metaPath, metaBytes, 0600); err != nil {
		return nil, err
	}

	if err := os.RemoveAll(outputDir); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpDir, outputDir); err != nil {
		return nil, err
	}

	return meta, nil
}

// RestoreFromSnapshot restores every instrument from a snapshot directory
// and starts its actor. Returns the snapshot metadata.
func (g *MatchingGateway) RestoreFromSnapshot(inputDir string) (*SnapshotMetadata, error) {
	metaPath := filepath.Join(inputDir, "metadata.json")
	metaBytes, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta SnapshotMetadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, err
	}

	binPath := filepath.Join(inputDir, "snapshot.bin")
	binFile, err := os.Open(binPath)
	if err != nil {
		return nil, err
	}
	defer binFile.Close()

	fileChecksum, err := calculateFileCRC32(binPath)
	if err != nil {
		return nil, err
	}
	if fileChecksum != meta.SnapshotChecksum {
		return nil, errors.New("snapshot.bin checksum mismatch")
	}

	stat, err := binFile.Stat()
	if err != nil {
		return nil, err
	}
	fileSize := stat.Size()

	footerLenBytes := make([]byte, 4)
	if _, err := binFile.ReadAt(footerLenBytes, fileSize-4); err != nil {
		return nil, err
	}
	footerLen := binary.BigEndian.Uint32(footerLenBytes)

	footerOffset := fileSize - 4 - int64(footerLen)
	footerBytes := make([]byte, footerLen)
	if _, err := binFile.ReadAt(footerBytes, footerOffset); err != nil {
		return nil, err
	}

	var footer SnapshotFileFooter
	if err := json.Unmarshal(footerBytes, &footer); err != nil {
		return nil, err
	}

	for _, segment := range footer.Instruments {
		segmentData := make([]byte, segment.Length)
		if _, err := binFile.ReadAt(segmentData, segment.Offset); err != nil {
			return nil, err
		}

		if crc32.ChecksumIEEE(segmentData) != segment.Checksum {
			return nil, fmt.Errorf("checksum mismatch for instrument %d", segment.SecurityID)
		}

		var snap EngineSnapshot
		if err := json.Unmarshal(segmentData, &snap); err != nil {
			return nil, err
		}

		opts := []EngineOption{WithEventPublisher(g.events)}
		if g.metrics != nil {
			opts = append(opts, WithMetrics(g.metrics))
		}

		instrument := NewInstrument(segment.SecurityID, g.trades, opts...)
		instrument.Restore(&snap)

		g.instruments.Store(segment.SecurityID, instrument)
		go func(ins *Instrument) {
			_ = ins.Start()
		}(instrument)
	}

	return &meta, nil
}
