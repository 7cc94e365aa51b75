package lit

import (
	"bufio"
	"hash/crc32"
	"io"
	"os"

	"github.com/shopspring/decimal"
)

const (
	// EngineVersion is the current version of the matching engine.
	EngineVersion = "v1.0.0"

	// SnapshotSchemaVersion is the current version of the snapshot schema.
	// Increment this when the snapshot format changes in a
	// backward-incompatible way.
	SnapshotSchemaVersion = 1
)

// EngineSnapshot contains the full state of a single instrument's engine.
// Orders are listed best price first, time priority preserved within each
// level, so a restore can re-file them back to back.
type EngineSnapshot struct {
	SecurityID  uint32      `json:"security_id"`
	NextOrderID uint64      `json:"next_order_id"`
	SeqID       uint64      `json:"seq_id"`
	MarketState MarketState `json:"market_state"`
	Halted      bool        `json:"halted"`
	TickSize    string      `json:"tick_size"`
	Bids        []Order     `json:"bids"`
	Asks        []Order     `json:"asks"`
}

// SnapshotMetadata holds the global metadata for a snapshot directory
// (stored in metadata.json).
type SnapshotMetadata struct {
	SchemaVersion    int    `json:"schema_version"`
	Timestamp        int64  `json:"timestamp"` // unix nano
	EngineVersion    string `json:"engine_version"`
	SnapshotChecksum uint32 `json:"snapshot_checksum"` // CRC32 of the entire snapshot.bin file
}

// SnapshotFileFooter is the footer structure stored at the end of
// snapshot.bin. Layout: [BinaryData...][FooterJSON][FooterLength(4 bytes)]
type SnapshotFileFooter struct {
	Instruments []InstrumentSegment `json:"instruments"`
}

// InstrumentSegment locates one instrument's data inside snapshot.bin.
type InstrumentSegment struct {
	SecurityID uint32 `json:"security_id"`
	Offset     int64  `json:"offset"`
	Length     int64  `json:"length"`
	Checksum   uint32 `json:"checksum"` // CRC32 of this segment
}

// snapshot captures the engine state. Called from the actor loop, so it is
// consistent with command processing.
func (e *LitEngine) snapshot() *EngineSnapshot {
	return &EngineSnapshot{
		SecurityID:  e.securityID,
		NextOrderID: e.nextOrderID,
		SeqID:       e.seqID,
		MarketState: e.state,
		Halted:      e.halted,
		TickSize:    e.ticks.size.String(),
		Bids:        e.bids.snapshotOrders(),
		Asks:        e.asks.snapshotOrders(),
	}
}

// restore resets the engine and rebuilds both book sides from the snapshot,
// bypassing matching. An order price-amended away from its filed tick is
// re-filed at its current price's tick; the original filing is not
// recoverable from a snapshot.
func (e *LitEngine) restore(snap *EngineSnapshot) {
	if size, err := decimal.NewFromString(snap.TickSize); err == nil {
		e.ticks = newTickTable(size)
	}

	e.nextOrderID = snap.NextOrderID
	e.seqID = snap.SeqID
	e.state = snap.MarketState
	e.halted = snap.Halted
	e.bids = newBidSide(e.ticks)
	e.asks = newAskSide(e.ticks)

	restoreOrders := func(orders []Order, side *bookSide) {
		for i := range orders {
			order := orders[i]
			side.insertOrder(&order, e.fileTick(&order))
		}
	}

	restoreOrders(snap.Bids, e.bids)
	restoreOrders(snap.Asks, e.asks)
	e.observeDepth()
}

// calculateFileCRC32 computes the CRC32 checksum of an entire file.
func calculateFileCRC32(path string) (uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	h := crc32.NewIEEE()
	if _, err := io.Copy(h, bufio.NewReader(f)); err != nil {
		return 0, err
	}

	return h.Sum32(), nil
}
