// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package discover

import (
	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/log"
)

// windowEntry is a window slot.  A slot either holds a PositionData, or
// (data == nil) marks a position that should not be processed.
type windowEntry struct {
	pos  PosType
	data *PositionData
}

// Compare implements llrb.Comparable.
func (e *windowEntry) Compare(c llrb.Comparable) int {
	e2 := c.(*windowEntry)
	if e.pos < e2.pos {
		return -1
	}
	if e.pos > e2.pos {
		return 1
	}
	return 0
}

func (e *windowEntry) ignored() bool {
	return e.data == nil
}

// Window holds the PositionData of the positions between the scanner's
// trailing edge and the furthest position a read has reached so far, ordered
// by position.
//
// Each slot is either active (holds a PositionData) or ignored.  Ignored
// slots take part in FirstPosition/Width/eviction like active ones, but are
// invisible to Get/ContainsKey and are never reported to eviction callbacks.
//
// A Window is not safe for concurrent use.
type Window struct {
	tree    llrb.Tree
	nActive int
}

// NewWindow creates an empty Window.
func NewWindow() *Window {
	return &Window{}
}

func (w *Window) lookup(pos PosType) *windowEntry {
	c := w.tree.Get(&windowEntry{pos: pos})
	if c == nil {
		return nil
	}
	return c.(*windowEntry)
}

// Put stores data at pos, replacing any previous PositionData or ignored
// marker.
func (w *Window) Put(pos PosType, data *PositionData) {
	if data == nil {
		log.Panicf("discover.Window.Put: nil PositionData at %d", pos)
	}
	if e := w.lookup(pos); e != nil {
		if e.ignored() {
			w.nActive++
		}
		e.data = data
		return
	}
	w.tree.Insert(&windowEntry{pos: pos, data: data})
	w.nActive++
}

// Get returns the PositionData at pos, or nil if pos is absent or ignored.
func (w *Window) Get(pos PosType) *PositionData {
	if e := w.lookup(pos); e != nil {
		return e.data
	}
	return nil
}

// ContainsKey returns true iff pos holds a PositionData.
func (w *Window) ContainsKey(pos PosType) bool {
	return w.Get(pos) != nil
}

// Remove deletes the slot at pos, and returns its PositionData (nil when pos
// was absent or ignored).
func (w *Window) Remove(pos PosType) *PositionData {
	e := w.lookup(pos)
	if e == nil {
		return nil
	}
	w.tree.Delete(e)
	if !e.ignored() {
		w.nActive--
	}
	return e.data
}

// Size returns the number of active slots.
func (w *Window) Size() int {
	return w.nActive
}

// IsEmpty returns true iff the window has no slots, active or ignored.
func (w *Window) IsEmpty() bool {
	return w.tree.Len() == 0
}

// Clear empties the window.
func (w *Window) Clear() {
	w.tree = llrb.Tree{}
	w.nActive = 0
}

func (w *Window) first() *windowEntry {
	c := w.tree.Min()
	if c == nil {
		return nil
	}
	return c.(*windowEntry)
}

// FirstPosition returns the smallest position in the window.  It panics when
// the window is empty; check IsEmpty first.
func (w *Window) FirstPosition() PosType {
	e := w.first()
	if e == nil {
		log.Panicf("discover.Window.FirstPosition: empty window")
	}
	return e.pos
}

// LastPosition returns the largest position in the window.  It panics when
// the window is empty.
func (w *Window) LastPosition() PosType {
	c := w.tree.Max()
	if c == nil {
		log.Panicf("discover.Window.LastPosition: empty window")
	}
	return c.(*windowEntry).pos
}

// RemoveFirst deletes the smallest-position slot.  No-op on an empty window.
func (w *Window) RemoveFirst() {
	if e := w.first(); e != nil {
		w.tree.DeleteMin()
		if !e.ignored() {
			w.nActive--
		}
	}
}

// RemoveUpTo deletes every slot with position <= pos.
func (w *Window) RemoveUpTo(pos PosType) {
	for e := w.first(); e != nil && e.pos <= pos; e = w.first() {
		w.RemoveFirst()
	}
}

// EvictBefore removes every slot with position < pos in increasing order,
// calling onEvict for active slots before each removal.
func (w *Window) EvictBefore(pos PosType, onEvict func(*PositionData)) {
	for e := w.first(); e != nil && e.pos < pos; e = w.first() {
		if !e.ignored() && onEvict != nil {
			onEvict(e.data)
		}
		w.RemoveFirst()
	}
}

// Width returns LastPosition - FirstPosition, or 0 for an empty window.
func (w *Window) Width() PosType {
	if w.IsEmpty() {
		return 0
	}
	return w.LastPosition() - w.FirstPosition()
}

// TrimWidth evicts leading slots until Width() <= 2*flank.  onEvict is called
// with each evicted active slot's PositionData before it is removed.
func (w *Window) TrimWidth(flank PosType, onEvict func(*PositionData)) {
	for w.Width() > 2*flank {
		if e := w.first(); !e.ignored() && onEvict != nil {
			onEvict(e.data)
		}
		w.RemoveFirst()
	}
}

// MarkIgnoredPosition turns the slot at pos into an ignored marker, dropping
// any PositionData it held.
func (w *Window) MarkIgnoredPosition(pos PosType) {
	if e := w.lookup(pos); e != nil {
		if !e.ignored() {
			w.nActive--
		}
		e.data = nil
		return
	}
	w.tree.Insert(&windowEntry{pos: pos})
}

// IsIgnoredPosition returns true iff pos holds an ignored marker.
func (w *Window) IsIgnoredPosition(pos PosType) bool {
	e := w.lookup(pos)
	return e != nil && e.ignored()
}

// Do calls fn on each active slot in increasing position order, until fn
// returns true.
func (w *Window) Do(fn func(*PositionData) bool) {
	w.tree.Do(func(c llrb.Comparable) bool {
		e := c.(*windowEntry)
		if e.ignored() {
			return false
		}
		return fn(e.data)
	})
}
