package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type corp struct {
	id    string
	price *SharePrice
}

func (c *corp) ID() string                  { return c.id }
func (c *corp) SharePrice() *SharePrice     { return c.price }
func (c *corp) SetSharePrice(p *SharePrice) { c.price = p }

func testLayout() [][]string {
	return [][]string{
		{"60y", "67", "71", "76", "82", "90", "100p", "112", "126"},
		{"53y", "60y", "66", "70", "76", "82", "90p", "100"},
		{"46y", "55y", "60y", "65", "70", "76", "82p"},
		{"39o", "48y", "54y", "60y", "66", "71"},
		{"32o", "41o", "48y", "55y", "62"},
		{"", "34o", "41o", "48y"},
	}
}

func TestParse(t *testing.T) {
	m, err := Parse(testLayout())
	require.NoError(t, err)

	assert.False(t, m.OneD())
	assert.Equal(t, 6, m.Rows())
	assert.Nil(t, m.Cell(Coordinates{Row: 5, Column: 0}), "blank code is blocked")
	assert.Nil(t, m.Cell(Coordinates{Row: 0, Column: 99}))

	cell := m.Cell(Coordinates{Row: 3, Column: 0})
	require.NotNil(t, cell)
	assert.Equal(t, 39, cell.Price)
	assert.True(t, cell.Is(CellUnlimited))
	assert.False(t, cell.CountsForLimit())

	pars := m.ParPrices()
	require.Len(t, pars, 3)
	assert.Equal(t, []int{100, 90, 82}, []int{pars[0].Price, pars[1].Price, pars[2].Price})
	assert.Equal(t, pars[1], m.FindPar(90))
	assert.Nil(t, m.FindPar(67))

	_, err = Parse([][]string{{"100q"}})
	assert.Error(t, err)
	_, err = Parse(nil)
	assert.Error(t, err)
}

func TestNextEdges(t *testing.T) {
	m, err := Parse(testLayout())
	require.NoError(t, err)

	tests := []struct {
		name string
		from Coordinates
		dir  Direction
		want Coordinates
	}{
		{"up from top row stays", Coordinates{0, 3}, Up, Coordinates{0, 3}},
		{"up", Coordinates{1, 3}, Up, Coordinates{0, 3}},
		{"down", Coordinates{0, 3}, Down, Coordinates{1, 3}},
		{"down into shorter row blocked", Coordinates{0, 8}, Down, Coordinates{0, 8}},
		{"down into blocked cell", Coordinates{4, 0}, Down, Coordinates{4, 0}},
		{"right", Coordinates{2, 2}, Right, Coordinates{2, 3}},
		{"right at row end moves up", Coordinates{1, 7}, Right, Coordinates{0, 7}},
		{"right at top corner stays", Coordinates{0, 8}, Right, Coordinates{0, 8}},
		{"left", Coordinates{2, 2}, Left, Coordinates{2, 1}},
		{"left at row start moves down", Coordinates{0, 0}, Left, Coordinates{1, 0}},
		{"left at bottom start stays", Coordinates{4, 0}, Left, Coordinates{4, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Next(tt.from, tt.dir))
		})
	}
}

func TestOneDimensionalMarket(t *testing.T) {
	m, err := Parse([][]string{{"40", "50", "60p", "70p", "80", "90e"}})
	require.NoError(t, err)
	require.True(t, m.OneD())

	start := Coordinates{Row: 0, Column: 2}
	assert.Equal(t, Coordinates{0, 3}, m.Next(start, Up))
	assert.Equal(t, Coordinates{0, 1}, m.Next(start, Down))
	assert.Equal(t, Coordinates{0, 5}, m.Walk(start, Right, Right, Right, Right))
	assert.Equal(t, Coordinates{0, 0}, m.Walk(start, Left, Left, Left))
}

func TestMoveTracksArrivalOrder(t *testing.T) {
	m, err := Parse(testLayout())
	require.NoError(t, err)

	a := &corp{id: "A"}
	b := &corp{id: "B"}
	m.SetPar(a, m.FindPar(90))
	m.SetPar(b, m.FindPar(90))

	cell := m.FindPar(90)
	assert.Equal(t, []string{"A", "B"}, cell.Corporations())
	assert.Less(t, Compare(a, b), 0, "earlier arrival operates first")

	from, to := m.Move(a, Right)
	assert.Equal(t, cell, from)
	assert.Equal(t, 100, to.Price)
	assert.Equal(t, []string{"B"}, cell.Corporations())
	assert.Less(t, Compare(a, b), 0, "higher price operates first")

	m.Move(a, Left)
	assert.Equal(t, []string{"B", "A"}, cell.Corporations())
	assert.Greater(t, Compare(a, b), 0, "returning corporation goes to the back")

	m.Remove(b)
	assert.Nil(t, b.SharePrice())
	assert.Equal(t, []string{"A"}, cell.Corporations())

	unparred := &corp{id: "C"}
	from, to = m.Move(unparred, Up)
	assert.Nil(t, from)
	assert.Nil(t, to)
	assert.Greater(t, Compare(unparred, a), 0)
}

func TestCompareOrdering(t *testing.T) {
	m, err := Parse(testLayout())
	require.NoError(t, err)

	// Same price, different cells: the cell further right goes first.
	right := &corp{id: "R", price: m.Cell(Coordinates{Row: 1, Column: 6})}
	left := &corp{id: "L", price: m.Cell(Coordinates{Row: 0, Column: 5})}
	assert.Equal(t, 90, left.price.Price)
	assert.Equal(t, 90, right.price.Price)
	assert.Less(t, Compare(right, left), 0)
	assert.Greater(t, Compare(left, right), 0)
}

func TestNextIsTotalAndPure(t *testing.T) {
	m, err := Parse(testLayout())
	require.NoError(t, err)

	var valid []Coordinates
	for r := 0; r < m.Rows(); r++ {
		for c := 0; c < 10; c++ {
			if m.Cell(Coordinates{Row: r, Column: c}) != nil {
				valid = append(valid, Coordinates{Row: r, Column: c})
			}
		}
	}

	rapid.Check(t, func(t *rapid.T) {
		at := rapid.SampledFrom(valid).Draw(t, "from")
		dirs := rapid.SliceOfN(rapid.SampledFrom([]Direction{Up, Down, Left, Right}), 0, 30).Draw(t, "dirs")

		first := m.Walk(at, dirs...)
		second := m.Walk(at, dirs...)
		if first != second {
			t.Fatalf("walk is not deterministic: %v vs %v", first, second)
		}
		if m.Cell(first) == nil {
			t.Fatalf("walk from %v by %v left the track at %v", at, dirs, first)
		}
	})
}
