// Package market models the stock price track: a grid of price cells on which
// every parred corporation occupies exactly one cell.
package market

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// CellType flags a price cell with a rule effect.
type CellType byte

const (
	CellPar         CellType = 'p'
	CellNoCertLimit CellType = 'y'
	CellUnlimited   CellType = 'o'
	CellMultipleBuy CellType = 'b'
	CellClose       CellType = 'c'
	CellEndGame     CellType = 'e'
	CellLiquidation CellType = 'l'
)

var knownTypes = map[CellType]bool{
	CellPar:         true,
	CellNoCertLimit: true,
	CellUnlimited:   true,
	CellMultipleBuy: true,
	CellClose:       true,
	CellEndGame:     true,
	CellLiquidation: true,
}

// Direction is a single step of movement on the track.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionNames = map[Direction]string{
	Up:    "up",
	Down:  "down",
	Left:  "left",
	Right: "right",
}

func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("direction_%d", int(d))
}

// ParseDirection converts a direction name.
func ParseDirection(s string) (Direction, error) {
	for d, name := range directionNames {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Coordinates locate a cell.
type Coordinates struct {
	Row    int
	Column int
}

// SharePrice is one cell of the track.
type SharePrice struct {
	Price int
	Coordinates
	types []CellType
	// corporations holds the IDs of corporations on this cell in arrival order.
	corporations []string
}

// ID identifies the cell as "price,row,column".
func (p *SharePrice) ID() string {
	return fmt.Sprintf("%d,%d,%d", p.Price, p.Row, p.Column)
}

// Is reports whether the cell carries the type flag.
func (p *SharePrice) Is(t CellType) bool {
	for _, ct := range p.types {
		if ct == t {
			return true
		}
	}
	return false
}

// Types returns the cell's type flags.
func (p *SharePrice) Types() []CellType {
	return append([]CellType(nil), p.types...)
}

// CountsForLimit reports whether certificates of a corporation on this cell
// count towards the certificate limit.
func (p *SharePrice) CountsForLimit() bool {
	return !p.Is(CellNoCertLimit) && !p.Is(CellUnlimited) && !p.Is(CellMultipleBuy)
}

// Corporations returns the IDs of the corporations on the cell in arrival order.
func (p *SharePrice) Corporations() []string {
	return append([]string(nil), p.corporations...)
}

// Position returns the arrival position of a corporation, or -1.
func (p *SharePrice) Position(corporationID string) int {
	for i, id := range p.corporations {
		if id == corporationID {
			return i
		}
	}
	return -1
}

func (p *SharePrice) remove(corporationID string) {
	for i, id := range p.corporations {
		if id == corporationID {
			p.corporations = append(p.corporations[:i], p.corporations[i+1:]...)
			return
		}
	}
}

// Holder is anything that sits on the track.
type Holder interface {
	ID() string
	SharePrice() *SharePrice
	SetSharePrice(*SharePrice)
}

// Market is the stock price track.
type Market struct {
	cells [][]*SharePrice
	oneD  bool
}

// Parse builds a market from rows of cell codes such as "100p", "60y" or "".
// An empty code is a blocked cell.
func Parse(layout [][]string) (*Market, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("market layout is empty")
	}
	m := &Market{
		cells: make([][]*SharePrice, len(layout)),
		oneD:  len(layout) == 1,
	}
	for r, row := range layout {
		m.cells[r] = make([]*SharePrice, len(row))
		for c, code := range row {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			cell, err := parseCell(code)
			if err != nil {
				return nil, fmt.Errorf("market cell %d,%d: %w", r, c, err)
			}
			cell.Coordinates = Coordinates{Row: r, Column: c}
			m.cells[r][c] = cell
		}
	}
	return m, nil
}

func parseCell(code string) (*SharePrice, error) {
	end := strings.IndexFunc(code, func(r rune) bool { return !unicode.IsDigit(r) })
	if end == -1 {
		end = len(code)
	}
	price, err := strconv.Atoi(code[:end])
	if err != nil {
		return nil, fmt.Errorf("invalid price in %q", code)
	}
	cell := &SharePrice{Price: price}
	for _, r := range code[end:] {
		t := CellType(r)
		if !knownTypes[t] {
			return nil, fmt.Errorf("unknown cell type %q in %q", r, code)
		}
		cell.types = append(cell.types, t)
	}
	return cell, nil
}

// OneD reports whether the market is a single row.
func (m *Market) OneD() bool {
	return m.oneD
}

// Rows returns the number of rows.
func (m *Market) Rows() int {
	return len(m.cells)
}

// Cell returns the cell at the coordinates, or nil for blocked or out of range.
func (m *Market) Cell(at Coordinates) *SharePrice {
	if at.Row < 0 || at.Row >= len(m.cells) {
		return nil
	}
	row := m.cells[at.Row]
	if at.Column < 0 || at.Column >= len(row) {
		return nil
	}
	return row[at.Column]
}

// Next returns the coordinates reached by one step in the direction. It is a
// pure function of the layout: on a one-row market up is right and down is
// left; moving right off the end of a row moves up instead, moving left off
// the start moves down instead, and a blocked target leaves the position
// unchanged.
func (m *Market) Next(from Coordinates, dir Direction) Coordinates {
	if m.oneD {
		switch dir {
		case Up:
			dir = Right
		case Down:
			dir = Left
		}
	}

	step := func(dr, dc int) (Coordinates, bool) {
		to := Coordinates{Row: from.Row + dr, Column: from.Column + dc}
		return to, m.Cell(to) != nil
	}

	switch dir {
	case Up:
		if to, ok := step(-1, 0); ok {
			return to
		}
	case Down:
		if to, ok := step(1, 0); ok {
			return to
		}
	case Right:
		if to, ok := step(0, 1); ok {
			return to
		}
		if !m.oneD {
			if to, ok := step(-1, 0); ok {
				return to
			}
		}
	case Left:
		if to, ok := step(0, -1); ok {
			return to
		}
		if !m.oneD {
			if to, ok := step(1, 0); ok {
				return to
			}
		}
	}
	return from
}

// Walk applies a sequence of directions.
func (m *Market) Walk(from Coordinates, dirs ...Direction) Coordinates {
	for _, d := range dirs {
		from = m.Next(from, d)
	}
	return from
}

// ParPrices returns the par cells, highest price first.
func (m *Market) ParPrices() []*SharePrice {
	var out []*SharePrice
	for _, row := range m.cells {
		for _, cell := range row {
			if cell != nil && cell.Is(CellPar) {
				out = append(out, cell)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Price > out[j].Price })
	return out
}

// FindPar returns the par cell with the given price.
func (m *Market) FindPar(price int) *SharePrice {
	for _, cell := range m.ParPrices() {
		if cell.Price == price {
			return cell
		}
	}
	return nil
}

// SetPar places a holder on a par cell.
func (m *Market) SetPar(h Holder, cell *SharePrice) {
	m.place(h, cell)
}

// Move walks a holder along the directions and returns the old and new cells.
func (m *Market) Move(h Holder, dirs ...Direction) (from, to *SharePrice) {
	from = h.SharePrice()
	if from == nil {
		return nil, nil
	}
	to = m.Cell(m.Walk(from.Coordinates, dirs...))
	if to != from {
		m.place(h, to)
	}
	return from, to
}

// Remove takes a holder off the track.
func (m *Market) Remove(h Holder) {
	if cell := h.SharePrice(); cell != nil {
		cell.remove(h.ID())
	}
	h.SetSharePrice(nil)
}

func (m *Market) place(h Holder, cell *SharePrice) {
	if old := h.SharePrice(); old != nil {
		old.remove(h.ID())
	}
	cell.corporations = append(cell.corporations, h.ID())
	h.SetSharePrice(cell)
}

// Compare orders holders for operating turns: higher price first, then the
// cell further right, then the higher row, then earlier arrival on the cell.
// Holders without a price sort last, by ID.
func Compare(a, b Holder) int {
	pa, pb := a.SharePrice(), b.SharePrice()
	switch {
	case pa == nil && pb == nil:
		return strings.Compare(a.ID(), b.ID())
	case pa == nil:
		return 1
	case pb == nil:
		return -1
	}
	if pa.Price != pb.Price {
		return pb.Price - pa.Price
	}
	if pa.Column != pb.Column {
		return pb.Column - pa.Column
	}
	if pa.Row != pb.Row {
		return pa.Row - pb.Row
	}
	return pa.Position(a.ID()) - pb.Position(b.ID())
}
