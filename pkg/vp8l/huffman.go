package vp8l

import "errors"

// maxCodeLength is the longest allowed Huffman code, inclusive.
const maxCodeLength = 15

// nonExistentSymbol marks an absent canonical code.
const nonExistentSymbol = -1

// huffNode is one node of a decode tree. children is the relative offset
// from this node to its left child (the right child follows it), 0 for a
// leaf, and -1 while the node is still unassigned.
type huffNode struct {
	symbol   int
	children int
}

func (n *huffNode) isLeaf() bool  { return n.children == 0 }
func (n *huffNode) isEmpty() bool { return n.children < 0 }

// huffTree is a canonical-Huffman decode tree. Every internal node has
// exactly two children and every leaf carries one symbol. It is built once
// per alphabet per group and immutable afterwards.
type huffTree struct {
	nodes    []huffNode
	maxNodes int
}

func (t *huffTree) isFull() bool { return len(t.nodes) == t.maxNodes }

func (t *huffTree) init(numLeaves int) bool {
	if numLeaves <= 0 {
		return false
	}
	t.maxNodes = 2*numLeaves - 1
	t.nodes = make([]huffNode, 1, t.maxNodes)
	t.nodes[0] = huffNode{children: -1}
	return true
}

// assignChildren turns an empty node into an internal node with two fresh
// empty children.
func (t *huffTree) assignChildren(node int) {
	t.nodes[node].children = len(t.nodes) - node
	t.nodes = append(t.nodes, huffNode{children: -1}, huffNode{children: -1})
}

// addSymbol inserts one (symbol, code, length) triple, walking the code
// MSB first from the root. It fails on over-subscribed or conflicting codes.
func (t *huffTree) addSymbol(symbol, code, length int) bool {
	node := 0
	for length > 0 {
		length--
		if node >= t.maxNodes {
			return false
		}
		if t.nodes[node].isEmpty() {
			if t.isFull() {
				return false // too many symbols
			}
			t.assignChildren(node)
		} else if t.nodes[node].isLeaf() {
			return false // prefix of an existing code
		}
		node += t.nodes[node].children + ((code >> uint(length)) & 1)
	}
	if t.nodes[node].isEmpty() {
		t.nodes[node].children = 0 // becomes a leaf
	} else if !t.nodes[node].isLeaf() {
		return false // existing code extends past this one
	}
	t.nodes[node].symbol = symbol
	return true
}

// codeLengthsToCodes assigns canonical codes: increasing length first, then
// increasing symbol index. Absent symbols (length 0) get nonExistentSymbol.
func codeLengthsToCodes(codeLengths []int) ([]int, error) {
	maxLength := 0
	for _, l := range codeLengths {
		if l > maxLength {
			maxLength = l
		}
	}
	if maxLength > maxCodeLength {
		return nil, errors.New("code length over limit")
	}

	var hist, next [maxCodeLength + 1]int
	for _, l := range codeLengths {
		hist[l]++
	}
	hist[0] = 0
	code := 0
	for l := 1; l <= maxLength; l++ {
		code = (code + hist[l-1]) << 1
		next[l] = code
	}

	codes := make([]int, len(codeLengths))
	for sym, l := range codeLengths {
		if l > 0 {
			codes[sym] = next[l]
			next[l]++
		} else {
			codes[sym] = nonExistentSymbol
		}
	}
	return codes, nil
}

// buildImplicit constructs the tree from one code length per symbol
// (0 = absent). The lengths must describe a complete prefix code, except for
// the degenerate single-symbol case which decodes without consuming bits.
func (t *huffTree) buildImplicit(codeLengths []int) bool {
	numSymbols := 0
	rootSymbol := 0
	for sym, l := range codeLengths {
		if l > 0 {
			numSymbols++
			rootSymbol = sym
		}
	}
	if !t.init(numSymbols) {
		return false
	}
	if numSymbols == 1 {
		return t.addSymbol(rootSymbol, 0, 0)
	}

	codes, err := codeLengthsToCodes(codeLengths)
	if err != nil {
		return false
	}
	for sym, l := range codeLengths {
		if l > 0 && !t.addSymbol(sym, codes[sym], l) {
			return false
		}
	}
	return t.isFull()
}

// buildExplicit constructs a degenerate one- or two-symbol tree from
// directly supplied codes and lengths.
func (t *huffTree) buildExplicit(codeLengths, codes, symbols []int) bool {
	if !t.init(len(symbols)) {
		return false
	}
	for i := range symbols {
		if !t.addSymbol(symbols[i], codes[i], codeLengths[i]) {
			return false
		}
	}
	return t.isFull()
}

// readSymbol walks the tree one bit per edge until a leaf. The unchecked
// bit path is taken only when the reader's remaining byte budget allows it;
// the caller is expected to have filled the bit window.
func (t *huffTree) readSymbol(br *bitReader) int {
	node := 0
	if br.canReadUnchecked() {
		for !t.nodes[node].isLeaf() {
			node += t.nodes[node].children + int(br.readBitUnchecked())
		}
	} else {
		for !t.nodes[node].isLeaf() {
			node += t.nodes[node].children + int(br.readBit())
		}
	}
	return t.nodes[node].symbol
}
