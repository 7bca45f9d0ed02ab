package entity

import (
	"fmt"
)

// TrainSpec defines one train type of the roster.
type TrainSpec struct {
	Name       string `yaml:"name" json:"name"`
	Distance   int    `yaml:"distance" json:"distance"`
	Price      int    `yaml:"price" json:"price"`
	Count      int    `yaml:"count" json:"count"`
	RustsOn    string `yaml:"rusts_on" json:"rusts_on,omitempty"`
	ObsoleteOn string `yaml:"obsolete_on" json:"obsolete_on,omitempty"`
}

// Train is a single train card.
type Train struct {
	spec     TrainSpec
	index    int
	owner    *Corporation
	operated bool
	rusted   bool
	obsolete bool
	exported bool
}

func (t *Train) ID() string          { return fmt.Sprintf("%s-%d", t.spec.Name, t.index) }
func (t *Train) Name() string        { return t.spec.Name }
func (t *Train) Distance() int       { return t.spec.Distance }
func (t *Train) Price() int          { return t.spec.Price }
func (t *Train) Owner() *Corporation { return t.owner }
func (t *Train) Operated() bool      { return t.operated }
func (t *Train) SetOperated(on bool) { t.operated = on }
func (t *Train) Rusted() bool        { return t.rusted }
func (t *Train) Obsolete() bool      { return t.obsolete }

// Depot holds every train: the upcoming ones in sale order and the discarded ones.
type Depot struct {
	trains    []*Train
	discarded []*Train
}

// NewDepot builds the roster in the order given.
func NewDepot(specs []TrainSpec) (*Depot, error) {
	d := &Depot{}
	for _, spec := range specs {
		if spec.Name == "" || spec.Price <= 0 || spec.Count <= 0 {
			return nil, fmt.Errorf("invalid train spec %+v", spec)
		}
		for i := 0; i < spec.Count; i++ {
			d.trains = append(d.trains, &Train{spec: spec, index: i})
		}
	}
	if len(d.trains) == 0 {
		return nil, fmt.Errorf("train roster is empty")
	}
	return d, nil
}

// Trains returns every train in roster order.
func (d *Depot) Trains() []*Train {
	return append([]*Train(nil), d.trains...)
}

// Upcoming returns the trains not yet sold, in sale order.
func (d *Depot) Upcoming() []*Train {
	var out []*Train
	for _, t := range d.trains {
		if t.owner == nil && !t.rusted && !t.exported && !d.isDiscarded(t) {
			out = append(out, t)
		}
	}
	return out
}

// Discarded returns the trains returned to the depot.
func (d *Depot) Discarded() []*Train {
	return append([]*Train(nil), d.discarded...)
}

// Available returns what can be bought now: the next upcoming train and any
// discarded train.
func (d *Depot) Available() []*Train {
	var out []*Train
	if up := d.Upcoming(); len(up) > 0 {
		out = append(out, up[0])
	}
	return append(out, d.discarded...)
}

// MinPrice is the cheapest available price, or 0 when nothing is available.
func (d *Depot) MinPrice() int {
	min := 0
	for _, t := range d.Available() {
		if min == 0 || t.Price() < min {
			min = t.Price()
		}
	}
	return min
}

// Find looks a train up by ID.
func (d *Depot) Find(id string) *Train {
	for _, t := range d.trains {
		if t.ID() == id {
			return t
		}
	}
	return nil
}

// Sell assigns an available train to a corporation.
func (d *Depot) Sell(t *Train, to *Corporation) error {
	available := false
	for _, a := range d.Available() {
		if a == t {
			available = true
			break
		}
	}
	if !available {
		return fmt.Errorf("train %s is not available", t.ID())
	}
	d.removeDiscarded(t)
	t.owner = to
	t.operated = false
	to.trains = append(to.trains, t)
	return nil
}

// Discard returns a corporation's train to the depot.
func (d *Depot) Discard(t *Train) {
	if t.owner != nil {
		t.owner.trains = removeTrain(t.owner.trains, t)
		t.owner = nil
	}
	d.discarded = append(d.discarded, t)
}

// Export removes the next upcoming train from play.
func (d *Depot) Export() *Train {
	up := d.Upcoming()
	if len(up) == 0 {
		return nil
	}
	up[0].exported = true
	return up[0]
}

// Rust removes every owned train that rusts when a train named name is bought.
func (d *Depot) Rust(name string) []*Train {
	var rusted []*Train
	for _, t := range d.trains {
		if t.spec.RustsOn != name || t.rusted {
			continue
		}
		t.rusted = true
		if t.owner != nil {
			t.owner.trains = removeTrain(t.owner.trains, t)
			t.owner = nil
			rusted = append(rusted, t)
		}
		d.removeDiscarded(t)
	}
	return rusted
}

// Obsolete flags trains that become obsolete when a train named name is bought.
func (d *Depot) Obsolete(name string) []*Train {
	var out []*Train
	for _, t := range d.trains {
		if t.spec.ObsoleteOn == name && !t.obsolete && !t.rusted {
			t.obsolete = true
			out = append(out, t)
		}
	}
	return out
}

// ReturnAll sends a corporation's trains back to the discard pile.
func (d *Depot) ReturnAll(c *Corporation) {
	for _, t := range c.Trains() {
		d.Discard(t)
	}
}

func (d *Depot) isDiscarded(t *Train) bool {
	for _, other := range d.discarded {
		if other == t {
			return true
		}
	}
	return false
}

func (d *Depot) removeDiscarded(t *Train) {
	d.discarded = removeTrain(d.discarded, t)
}

func removeTrain(list []*Train, t *Train) []*Train {
	for i, other := range list {
		if other == t {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
