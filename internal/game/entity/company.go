package entity

// Company is a private company. It has no treasury; revenue goes to its owner.
type Company struct {
	id             string
	name           string
	value          int
	revenue        int
	countsForLimit bool
	owner          Entity
	closed         bool
}

// NewCompany creates an unowned company.
func NewCompany(id, name string, value, revenue int, countsForLimit bool) *Company {
	return &Company{id: id, name: name, value: value, revenue: revenue, countsForLimit: countsForLimit}
}

func (c *Company) ID() string   { return c.id }
func (c *Company) Name() string { return c.name }
func (c *Company) Type() Type   { return TypeCompany }
func (c *Company) Cash() int    { return 0 }
func (c *Company) Closed() bool { return c.closed }

func (c *Company) Player() *Player {
	if c.owner == nil {
		return nil
	}
	return c.owner.Player()
}

// Value is the face value.
func (c *Company) Value() int { return c.value }

// Revenue is paid to the owner at the start of each operating round.
func (c *Company) Revenue() int { return c.revenue }

// CountsForLimit reports whether the company counts as a certificate.
func (c *Company) CountsForLimit() bool { return c.countsForLimit }

// Owner returns the owning player or corporation, or nil when the bank holds it.
func (c *Company) Owner() Entity { return c.owner }

// TransferCompany moves a company to a new owner; a nil owner returns it to the bank.
func TransferCompany(c *Company, to Entity) {
	switch owner := c.owner.(type) {
	case *Player:
		owner.companies = removeCompany(owner.companies, c)
	case *Corporation:
		owner.companies = removeCompany(owner.companies, c)
	}
	c.owner = to
	switch owner := to.(type) {
	case *Player:
		owner.companies = append(owner.companies, c)
	case *Corporation:
		owner.companies = append(owner.companies, c)
	}
}

// CloseCompany removes a company from play.
func CloseCompany(c *Company) {
	TransferCompany(c, nil)
	c.closed = true
}

func removeCompany(list []*Company, c *Company) []*Company {
	for i, other := range list {
		if other == c {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
