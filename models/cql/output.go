package cql

import (
	"errors"
	"fmt"
	"strconv"
)

// Output maps aliases to registered statements, keeping registration order.
// A fork stages the statements of one source condition on top of its parent
// and is merged back with Commit.
type Output struct {
	parent  *Output
	entries map[string]Entry
	order   []string
}

// NewOutput creates an empty output.
func NewOutput() *Output {
	return &Output{entries: make(map[string]Entry)}
}

// Fork returns a staging output whose lookups fall through to o.
func (o *Output) Fork() *Output {
	child := NewOutput()
	child.parent = o
	return child
}

// Commit merges a fork into its parent and empties it.
func (o *Output) Commit() error {
	if o.parent == nil {
		return errors.New("commit on an output that is not a fork")
	}
	for _, alias := range o.order {
		o.parent.Register(alias, o.entries[alias])
	}
	o.entries = make(map[string]Entry)
	o.order = nil
	return nil
}

// Register stores an entry under alias. Re-registering an alias replaces the
// entry but keeps its original position.
func (o *Output) Register(alias string, e Entry) {
	if _, exists := o.entries[alias]; !exists {
		o.order = append(o.order, alias)
	}
	o.entries[alias] = e
}

// RegisterBlock registers b under its own alias and returns the alias. An
// alias already taken by any entry, here or in a parent, is never replaced:
// the block is renamed with a counter suffix instead.
func (o *Output) RegisterBlock(b *DefineBlock) string {
	base := b.Alias()
	alias := base
	for i := 2; ; i++ {
		if _, taken := o.Lookup(alias); !taken {
			break
		}
		alias = base + " " + strconv.Itoa(i)
	}
	b.Statement.Alias = alias
	o.Register(alias, b)
	return alias
}

// Lookup returns the entry registered under alias, looking through forks.
func (o *Output) Lookup(alias string) (Entry, bool) {
	for cur := o; cur != nil; cur = cur.parent {
		if e, ok := cur.entries[alias]; ok {
			return e, true
		}
	}
	return nil, false
}

// Block returns the define block registered under alias.
func (o *Output) Block(alias string) (*DefineBlock, bool) {
	e, ok := o.Lookup(alias)
	if !ok {
		return nil, false
	}
	b, ok := e.(*DefineBlock)
	return b, ok
}

// Code returns the code literal registered under alias.
func (o *Output) Code(alias string) (*DirectReferenceCode, bool) {
	e, ok := o.Lookup(alias)
	if !ok {
		return nil, false
	}
	c, ok := e.(*DirectReferenceCode)
	return c, ok
}

// RegisterCode registers a code literal under a generated alias and returns
// the alias. The display name is preferred; an identical literal that is
// already registered is reused, a different one with the same display name
// is disambiguated by its code and then by a counter.
func (o *Output) RegisterCode(c *DirectReferenceCode) string {
	base := c.Display
	if base == "" {
		base = c.Code
	}
	candidates := []string{base, fmt.Sprintf("%s (%s)", base, c.Code)}
	for i := 0; ; i++ {
		var alias string
		if i < len(candidates) {
			alias = candidates[i]
		} else {
			alias = candidates[1] + " " + strconv.Itoa(i)
		}

		existing, ok := o.Lookup(alias)
		if !ok {
			c.Alias = alias
			o.Register(alias, c)
			return alias
		}
		if prev, isCode := existing.(*DirectReferenceCode); isCode && prev.Same(c) {
			c.Alias = alias
			return alias
		}
	}
}

// Len returns the number of entries registered directly on o.
func (o *Output) Len() int {
	return len(o.order)
}

// Aliases returns the aliases registered directly on o, in order.
func (o *Output) Aliases() []string {
	out := make([]string, len(o.order))
	copy(out, o.order)
	return out
}

// Blocks returns the registered define blocks in registration order.
func (o *Output) Blocks() []*DefineBlock {
	var out []*DefineBlock
	for _, alias := range o.order {
		if b, ok := o.entries[alias].(*DefineBlock); ok {
			out = append(out, b)
		}
	}
	return out
}

// Codes returns the registered code literals in registration order.
func (o *Output) Codes() []*DirectReferenceCode {
	var out []*DirectReferenceCode
	for _, alias := range o.order {
		if c, ok := o.entries[alias].(*DirectReferenceCode); ok {
			out = append(out, c)
		}
	}
	return out
}
