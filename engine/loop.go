// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package engine

// Loop visits every site of a Container once, block by block and in
// insertion order within a block.
type Loop struct {
	c     *Container
	block int
	slot  int
}

func (c *Container) NewLoop() *Loop {
	return &Loop{c: c, block: -1}
}

// Start positions the loop on the first site. It returns false if the
// container is empty.
func (l *Loop) Start() bool {
	l.block, l.slot = 0, 0
	return l.seek()
}

// Inc moves to the next site. It returns false once every site was visited.
func (l *Loop) Inc() bool {
	if !l.Valid() {
		return false
	}
	l.slot++
	return l.seek()
}

func (l *Loop) seek() bool {
	for l.block < len(l.c.blocks) {
		if l.slot < len(l.c.blocks[l.block]) {
			return true
		}
		l.block++
		l.slot = 0
	}
	return false
}

// Valid reports whether the loop is positioned on a site.
func (l *Loop) Valid() bool {
	return l.block >= 0 && l.block < len(l.c.blocks) && l.slot < len(l.c.blocks[l.block])
}

// Pos returns the insertion position and the site under the loop.
func (l *Loop) Pos() (int, Site, bool) {
	if !l.Valid() {
		return -1, Site{}, false
	}
	idx := l.c.blocks[l.block][l.slot]
	return idx, l.c.sites[idx], true
}
