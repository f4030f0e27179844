/*
 * Copyright 2026 The Quotesync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package crdt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cova-team/quotesync/pkg/document/time"
)

// RGATreeSplitNodeID is an ID of RGATreeSplitNode. A node created by an edit
// keeps its createdAt when it is split; the pieces differ by offset.
type RGATreeSplitNodeID struct {
	createdAt *time.Ticket
	offset    int
}

// NewRGATreeSplitNodeID creates a new instance of RGATreeSplitNodeID.
func NewRGATreeSplitNodeID(createdAt *time.Ticket, offset int) *RGATreeSplitNodeID {
	return &RGATreeSplitNodeID{
		createdAt: createdAt,
		offset:    offset,
	}
}

// CreatedAt returns the creation time of this ID.
func (id *RGATreeSplitNodeID) CreatedAt() *time.Ticket {
	return id.createdAt
}

// Offset returns the offset of this ID.
func (id *RGATreeSplitNodeID) Offset() int {
	return id.offset
}

// Split creates a new ID with an offset from this ID.
func (id *RGATreeSplitNodeID) Split(offset int) *RGATreeSplitNodeID {
	return NewRGATreeSplitNodeID(id.createdAt, id.offset+offset)
}

func (id *RGATreeSplitNodeID) key() string {
	return id.createdAt.Key() + ":" + strconv.Itoa(id.offset)
}

// RGATreeSplitNodePos is the position of the text inside the node.
type RGATreeSplitNodePos struct {
	id             *RGATreeSplitNodeID
	relativeOffset int
}

// NewRGATreeSplitNodePos creates a new instance of RGATreeSplitNodePos.
func NewRGATreeSplitNodePos(id *RGATreeSplitNodeID, offset int) *RGATreeSplitNodePos {
	return &RGATreeSplitNodePos{id, offset}
}

// ID returns the ID of this RGATreeSplitNodePos.
func (pos *RGATreeSplitNodePos) ID() *RGATreeSplitNodeID {
	return pos.id
}

// RelativeOffset returns the relative offset of this RGATreeSplitNodePos.
func (pos *RGATreeSplitNodePos) RelativeOffset() int {
	return pos.relativeOffset
}

func (pos *RGATreeSplitNodePos) getAbsoluteID() *RGATreeSplitNodeID {
	return NewRGATreeSplitNodeID(pos.id.createdAt, pos.id.offset+pos.relativeOffset)
}

// RGATreeSplitNode is a node of RGATreeSplit holding a run of characters.
type RGATreeSplitNode struct {
	id        *RGATreeSplitNodeID
	value     []rune
	removedAt *time.Ticket

	prev *RGATreeSplitNode
	next *RGATreeSplitNode

	// insPrev and insNext link the pieces of a split node in offset order.
	insPrev *RGATreeSplitNode
	insNext *RGATreeSplitNode
}

func newRGATreeSplitNode(id *RGATreeSplitNodeID, value []rune) *RGATreeSplitNode {
	return &RGATreeSplitNode{
		id:    id,
		value: value,
	}
}

// ID returns the ID of this RGATreeSplitNode.
func (s *RGATreeSplitNode) ID() *RGATreeSplitNodeID {
	return s.id
}

// RemovedAt returns the remove time of this node.
func (s *RGATreeSplitNode) RemovedAt() *time.Ticket {
	return s.removedAt
}

// Len returns the visible length of this node.
func (s *RGATreeSplitNode) Len() int {
	if s.removedAt != nil {
		return 0
	}
	return len(s.value)
}

// String returns the text of this node.
func (s *RGATreeSplitNode) String() string {
	return string(s.value)
}

func (s *RGATreeSplitNode) contentLen() int {
	return len(s.value)
}

func (s *RGATreeSplitNode) createdAt() *time.Ticket {
	return s.id.createdAt
}

func (s *RGATreeSplitNode) setInsPrev(node *RGATreeSplitNode) {
	s.insPrev = node
	node.insNext = s
}

func (s *RGATreeSplitNode) split(offset int) *RGATreeSplitNode {
	value := make([]rune, len(s.value)-offset)
	copy(value, s.value[offset:])
	s.value = s.value[:offset:offset]

	node := newRGATreeSplitNode(s.id.Split(offset), value)
	node.removedAt = s.removedAt
	return node
}

// remove marks this node as removed if the editor had seen it, that is, if it
// was created no later than the latest creation time the editor knew for the
// node's actor.
func (s *RGATreeSplitNode) remove(removedAt *time.Ticket, latestCreatedAt *time.Ticket) bool {
	if !s.createdAt().After(latestCreatedAt) &&
		(s.removedAt == nil || removedAt.After(s.removedAt)) {
		s.removedAt = removedAt
		return true
	}
	return false
}

// RGATreeSplit is a block-based list of characters in RGA. A block is split
// when an edit lands inside it, which keeps the metadata small for text
// typed in runs.
type RGATreeSplit struct {
	initialHead *RGATreeSplitNode

	// nodeMapByCreatedAt holds the first piece of every inserted block; the
	// rest are reached through insNext.
	nodeMapByCreatedAt map[string]*RGATreeSplitNode
}

// NewRGATreeSplit creates a new instance of RGATreeSplit.
func NewRGATreeSplit() *RGATreeSplit {
	head := newRGATreeSplitNode(NewRGATreeSplitNodeID(time.InitialTicket, 0), nil)
	return &RGATreeSplit{
		initialHead:        head,
		nodeMapByCreatedAt: map[string]*RGATreeSplitNode{time.InitialTicket.Key(): head},
	}
}

func (s *RGATreeSplit) createRange(from, to int) (*RGATreeSplitNodePos, *RGATreeSplitNodePos, error) {
	fromPos, err := s.findNodePos(from)
	if err != nil {
		return nil, nil, err
	}
	if from == to {
		return fromPos, fromPos, nil
	}

	toPos, err := s.findNodePos(to)
	if err != nil {
		return nil, nil, err
	}

	return fromPos, toPos, nil
}

// findNodePos returns the position of the given index. At a boundary between
// two nodes the position is expressed on the left node.
func (s *RGATreeSplit) findNodePos(index int) (*RGATreeSplitNodePos, error) {
	if index < 0 {
		return nil, fmt.Errorf("find %d: %w", index, ErrIndexOutOfRange)
	}
	if index == 0 {
		return NewRGATreeSplitNodePos(s.initialHead.id, 0), nil
	}

	pos := 0
	for node := s.initialHead.next; node != nil; node = node.next {
		length := node.Len()
		if length == 0 {
			continue
		}
		if index <= pos+length {
			return NewRGATreeSplitNodePos(node.id, index-pos), nil
		}
		pos += length
	}

	return nil, fmt.Errorf("find %d of %d: %w", index, pos, ErrIndexOutOfRange)
}

func (s *RGATreeSplit) findNodeWithSplit(
	pos *RGATreeSplitNodePos,
	editedAt *time.Ticket,
) (*RGATreeSplitNode, *RGATreeSplitNode, error) {
	absoluteID := pos.getAbsoluteID()
	node, err := s.findFloorNodePreferToLeft(absoluteID)
	if err != nil {
		return nil, nil, err
	}

	if _, err := s.splitNode(node, absoluteID.offset-node.id.offset); err != nil {
		return nil, nil, err
	}

	for node.next != nil && node.next.createdAt().After(editedAt) {
		node = node.next
	}

	return node, node.next, nil
}

func (s *RGATreeSplit) findFloorNode(id *RGATreeSplitNodeID) *RGATreeSplitNode {
	node, ok := s.nodeMapByCreatedAt[id.createdAt.Key()]
	if !ok {
		return nil
	}

	for node.insNext != nil && node.insNext.id.offset <= id.offset {
		node = node.insNext
	}
	return node
}

func (s *RGATreeSplit) findFloorNodePreferToLeft(id *RGATreeSplitNodeID) (*RGATreeSplitNode, error) {
	node := s.findFloorNode(id)
	if node == nil {
		return nil, fmt.Errorf("find floor node %s: %w", id.key(), ErrChildNotFound)
	}

	if id.offset > 0 && node.id.offset == id.offset && node.insPrev != nil {
		node = node.insPrev
	}

	return node, nil
}

func (s *RGATreeSplit) splitNode(node *RGATreeSplitNode, offset int) (*RGATreeSplitNode, error) {
	if offset > node.contentLen() {
		return nil, fmt.Errorf("split %s at %d: %w", node.id.key(), offset, ErrIndexOutOfRange)
	}

	if offset == 0 {
		return node, nil
	} else if offset == node.contentLen() {
		return node.next, nil
	}

	splitNode := node.split(offset)
	s.insertAfter(node, splitNode)

	if node.insNext != nil {
		node.insNext.setInsPrev(splitNode)
	}
	splitNode.setInsPrev(node)

	return splitNode, nil
}

func (s *RGATreeSplit) insertAfter(prev, node *RGATreeSplitNode) *RGATreeSplitNode {
	next := prev.next
	node.prev = prev
	prev.next = node
	node.next = next
	if next != nil {
		next.prev = node
	}
	return node
}

func (s *RGATreeSplit) edit(
	from *RGATreeSplitNodePos,
	to *RGATreeSplitNodePos,
	latestCreatedAtMapByActor map[string]*time.Ticket,
	content string,
	editedAt *time.Ticket,
) (map[string]*time.Ticket, error) {
	// 01. Split nodes with from and to.
	_, toRight, err := s.findNodeWithSplit(to, editedAt)
	if err != nil {
		return nil, err
	}
	fromLeft, fromRight, err := s.findNodeWithSplit(from, editedAt)
	if err != nil {
		return nil, err
	}

	// 02. Delete between from and to.
	var candidates []*RGATreeSplitNode
	for node := fromRight; node != nil && node != toRight; node = node.next {
		candidates = append(candidates, node)
	}
	latestCreatedAtMap := s.deleteNodes(candidates, latestCreatedAtMapByActor, editedAt)

	// 03. Insert a new node.
	if len(content) > 0 {
		inserted := newRGATreeSplitNode(NewRGATreeSplitNodeID(editedAt, 0), []rune(content))
		s.insertAfter(fromLeft, inserted)
		s.nodeMapByCreatedAt[editedAt.Key()] = inserted
	}

	return latestCreatedAtMap, nil
}

func (s *RGATreeSplit) deleteNodes(
	candidates []*RGATreeSplitNode,
	latestCreatedAtMapByActor map[string]*time.Ticket,
	editedAt *time.Ticket,
) map[string]*time.Ticket {
	createdAtMapByActor := make(map[string]*time.Ticket)

	for _, node := range candidates {
		actorID := node.createdAt().ActorID().String()

		// A nil map means a local edit, which has seen everything.
		latestCreatedAt := time.MaxTicket
		if latestCreatedAtMapByActor != nil {
			latestCreatedAt = time.InitialTicket
			if createdAt, ok := latestCreatedAtMapByActor[actorID]; ok {
				latestCreatedAt = createdAt
			}
		}

		if node.remove(editedAt, latestCreatedAt) {
			if latest := createdAtMapByActor[actorID]; latest == nil || node.createdAt().After(latest) {
				createdAtMapByActor[actorID] = node.createdAt()
			}
		}
	}

	return createdAtMapByActor
}

func (s *RGATreeSplit) len() int {
	length := 0
	for node := s.initialHead.next; node != nil; node = node.next {
		length += node.Len()
	}
	return length
}

func (s *RGATreeSplit) string() string {
	sb := strings.Builder{}
	for node := s.initialHead.next; node != nil; node = node.next {
		if node.removedAt == nil {
			sb.WriteString(string(node.value))
		}
	}
	return sb.String()
}

func (s *RGATreeSplit) deepCopy() *RGATreeSplit {
	copied := NewRGATreeSplit()
	copies := map[*RGATreeSplitNode]*RGATreeSplitNode{s.initialHead: copied.initialHead}

	prev := copied.initialHead
	for node := s.initialHead.next; node != nil; node = node.next {
		value := make([]rune, len(node.value))
		copy(value, node.value)
		copiedNode := newRGATreeSplitNode(node.id, value)
		copiedNode.removedAt = node.removedAt
		s.insertAfter(prev, copiedNode)
		copies[node] = copiedNode
		prev = copiedNode
	}

	for node, copiedNode := range copies {
		if node.insPrev != nil {
			copiedNode.insPrev = copies[node.insPrev]
		}
		if node.insNext != nil {
			copiedNode.insNext = copies[node.insNext]
		}
	}
	for key, node := range s.nodeMapByCreatedAt {
		copied.nodeMapByCreatedAt[key] = copies[node]
	}

	return copied
}

// StructureAsString returns a string containing the metadata of the nodes
// for debugging purpose.
func (s *RGATreeSplit) StructureAsString() string {
	sb := strings.Builder{}
	for node := s.initialHead; node != nil; node = node.next {
		if node.removedAt != nil {
			sb.WriteString(fmt.Sprintf("{%s %s}", node.id.key(), string(node.value)))
		} else {
			sb.WriteString(fmt.Sprintf("[%s %s]", node.id.key(), string(node.value)))
		}
	}
	return sb.String()
}
