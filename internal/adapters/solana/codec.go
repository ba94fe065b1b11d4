package solana

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/prophet/internal/domain"
	bin "github.com/gagliardetto/binary"
	sol "github.com/gagliardetto/solana-go"
)

var errNotMarket = errors.New("not a market account")

// marketAccount es el layout borsh de la cuenta Market, tras el discriminator.
type marketAccount struct {
	Authority       sol.PublicKey
	MarketID        uint64
	EndTime         int64
	Question        string
	Resolved        bool
	WinningOutcome  *uint8
	Totals          [domain.MaxOutcomes]uint64
	OutcomeCount    uint8
	TotalLiquidity  uint64
	FeesDistributed bool
	Paused          bool
	Cancelled       bool
	OutcomeNames    [domain.MaxOutcomes]string
	OracleKey       *sol.PublicKey
	MinBet          uint64
	MaxBet          uint64
	MetadataURL     string
	PolymarketID    string
	Bump            uint8
}

// initMarketArgs son los argumentos de initialize_market, en orden.
type initMarketArgs struct {
	MarketID     uint64
	EndTime      int64
	Question     string
	OutcomeCount uint8
	OutcomeNames [domain.MaxOutcomes]string
	OracleKey    *sol.PublicKey
	MinBet       uint64
	MaxBet       uint64
	MetadataURL  string
	PolymarketID string
}

func encodeInitializeMarket(a initMarketArgs) ([]byte, error) {
	w := newBorshWriter(instructionDiscriminator("initialize_market"))
	w.u64(a.MarketID)
	w.i64(a.EndTime)
	w.str(a.Question)
	w.u8(a.OutcomeCount)
	for _, name := range a.OutcomeNames {
		w.str(name)
	}
	w.optPubkey(a.OracleKey)
	w.u64(a.MinBet)
	w.u64(a.MaxBet)
	w.str(a.MetadataURL)
	w.str(a.PolymarketID)
	return w.bytes()
}

func encodePlaceVote(amount uint64, outcomeIndex uint8) ([]byte, error) {
	w := newBorshWriter(instructionDiscriminator("place_vote"))
	w.u64(amount)
	w.u8(outcomeIndex)
	return w.bytes()
}

func encodeResolveViaOracle(outcomeIndex uint8) ([]byte, error) {
	w := newBorshWriter(instructionDiscriminator("resolve_via_oracle"))
	w.u8(outcomeIndex)
	return w.bytes()
}

// decodeMarket decodifica una cuenta del programa. Devuelve errNotMarket si el
// discriminator no es el de Market (config, vote records...).
func decodeMarket(data []byte) (marketAccount, error) {
	if len(data) < 8 || !bytes.Equal(data[:8], marketDiscriminator[:]) {
		return marketAccount{}, errNotMarket
	}

	r := borshReader{dec: bin.NewBorshDecoder(data[8:])}
	var m marketAccount
	m.Authority = r.pubkey()
	m.MarketID = r.u64()
	m.EndTime = r.i64()
	m.Question = r.str()
	m.Resolved = r.boolean()
	if r.boolean() {
		v := r.u8()
		m.WinningOutcome = &v
	}
	for i := range m.Totals {
		m.Totals[i] = r.u64()
	}
	m.OutcomeCount = r.u8()
	m.TotalLiquidity = r.u64()
	m.FeesDistributed = r.boolean()
	m.Paused = r.boolean()
	m.Cancelled = r.boolean()
	for i := range m.OutcomeNames {
		m.OutcomeNames[i] = r.str()
	}
	if r.boolean() {
		k := r.pubkey()
		m.OracleKey = &k
	}
	m.MinBet = r.u64()
	m.MaxBet = r.u64()
	m.MetadataURL = r.str()
	m.PolymarketID = r.str()
	m.Bump = r.u8()

	if r.err != nil {
		return marketAccount{}, fmt.Errorf("decode market: %w", r.err)
	}
	return m, nil
}

// toDomain convierte la cuenta a LedgerMarket.
func (m marketAccount) toDomain(address string) domain.LedgerMarket {
	lm := domain.LedgerMarket{
		Address:         address,
		Authority:       m.Authority.String(),
		MarketID:        m.MarketID,
		EndTime:         time.Unix(m.EndTime, 0).UTC(),
		Question:        m.Question,
		Resolved:        m.Resolved,
		Totals:          m.Totals,
		OutcomeCount:    int(m.OutcomeCount),
		TotalLiquidity:  m.TotalLiquidity,
		FeesDistributed: m.FeesDistributed,
		Paused:          m.Paused,
		Cancelled:       m.Cancelled,
		MinBet:          m.MinBet,
		MaxBet:          m.MaxBet,
		MetadataURL:     m.MetadataURL,
		PolymarketID:    m.PolymarketID,
	}
	for i, name := range m.OutcomeNames {
		lm.OutcomeNames[i] = strings.TrimRight(name, "\x00")
	}
	if m.WinningOutcome != nil {
		w := int(*m.WinningOutcome)
		lm.WinningOutcome = &w
	}
	if m.OracleKey != nil {
		lm.OracleKey = m.OracleKey.String()
	}
	return lm
}

// tokenAmount lee el campo amount (u64 LE en el offset 64) de una cuenta SPL Token.
func tokenAmount(data []byte) (uint64, error) {
	if len(data) < 72 {
		return 0, fmt.Errorf("token account too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[64:72]), nil
}

// --- borsh helpers ---

// borshWriter acumula el primer error y lo devuelve en bytes().
type borshWriter struct {
	buf bytes.Buffer
	enc *bin.Encoder
	err error
}

func newBorshWriter(disc [8]byte) *borshWriter {
	w := &borshWriter{}
	w.enc = bin.NewBorshEncoder(&w.buf)
	w.raw(disc[:])
	return w
}

func (w *borshWriter) raw(b []byte) {
	if w.err == nil {
		w.err = w.enc.WriteBytes(b, false)
	}
}

func (w *borshWriter) u8(v uint8) {
	if w.err == nil {
		w.err = w.enc.WriteUint8(v)
	}
}

func (w *borshWriter) boolean(v bool) {
	if w.err == nil {
		w.err = w.enc.WriteBool(v)
	}
}

func (w *borshWriter) u32(v uint32) {
	if w.err == nil {
		w.err = w.enc.WriteUint32(v, binary.LittleEndian)
	}
}

func (w *borshWriter) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, binary.LittleEndian)
	}
}

func (w *borshWriter) i64(v int64) {
	if w.err == nil {
		w.err = w.enc.WriteInt64(v, binary.LittleEndian)
	}
}

// str escribe un String de borsh: u32 LE con la longitud y los bytes UTF-8.
func (w *borshWriter) str(s string) {
	w.u32(uint32(len(s)))
	w.raw([]byte(s))
}

func (w *borshWriter) pubkey(k sol.PublicKey) {
	w.raw(k[:])
}

func (w *borshWriter) optPubkey(k *sol.PublicKey) {
	if k == nil {
		w.boolean(false)
		return
	}
	w.boolean(true)
	w.pubkey(*k)
}

func (w *borshWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// borshReader acumula el primer error; tras un error devuelve valores cero.
type borshReader struct {
	dec *bin.Decoder
	err error
}

func (r *borshReader) u8() uint8 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint8()
	r.err = err
	return v
}

func (r *borshReader) boolean() bool {
	if r.err != nil {
		return false
	}
	v, err := r.dec.ReadBool()
	r.err = err
	return v
}

func (r *borshReader) u32() uint32 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint32(binary.LittleEndian)
	r.err = err
	return v
}

func (r *borshReader) u64() uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadUint64(binary.LittleEndian)
	r.err = err
	return v
}

func (r *borshReader) i64() int64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.ReadInt64(binary.LittleEndian)
	r.err = err
	return v
}

func (r *borshReader) nbytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > r.dec.Remaining() {
		r.err = fmt.Errorf("need %d bytes, have %d", n, r.dec.Remaining())
		return nil
	}
	v, err := r.dec.ReadNBytes(n)
	r.err = err
	return v
}

func (r *borshReader) str() string {
	n := r.u32()
	return string(r.nbytes(int(n)))
}

func (r *borshReader) pubkey() sol.PublicKey {
	b := r.nbytes(sol.PublicKeyLength)
	if b == nil {
		return sol.PublicKey{}
	}
	return sol.PublicKeyFromBytes(b)
}
