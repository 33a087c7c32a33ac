package xdiff

import (
	"bytes"
	"fmt"
	"slices"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// NativeEngine is the built-in Engine. It runs a line-level diff through
// go-diff and groups the edit script into hunks the way xdiff does.
type NativeEngine struct {
	// Timeout bounds the diff computation. Zero keeps the go-diff default;
	// FlagNeedMinimal disables it entirely.
	Timeout time.Duration
}

type editOp int8

const (
	opEqual editOp = iota
	opDelete
	opInsert
)

// edit is one script step. old and new index the line consumed on each side;
// the unused one is -1.
type edit struct {
	op  editOp
	old int
	new int
}

// span is a half-open range of script positions.
type span struct {
	start int
	end   int
}

// Name identifies the engine in logs and metrics.
func (NativeEngine) Name() string { return "native" }

// Diff implements Engine.
func (e NativeEngine) Diff(a, b *File, opts *Options, cfg *EmitConfig, sink Sink) error {
	if sink == nil && cfg.HunkFunc() == nil {
		return fmt.Errorf("%w: no sink", ErrInvalidConfig)
	}

	oldLines, newLines := SplitLines(a.Bytes()), SplitLines(b.Bytes())
	flags := opts.Flags()

	in := newInterner()

	oldKeys, err := in.keys(oldLines, flags)
	if err != nil {
		return err
	}

	newKeys, err := in.keys(newLines, flags)
	if err != nil {
		return err
	}

	script := e.script(oldLines, oldKeys, newKeys, opts)

	d := &emitter{
		script:   script,
		oldLines: oldLines,
		newLines: newLines,
		opts:     opts,
		cfg:      cfg,
		sink:     sink,
	}

	return d.run()
}

// script computes the full edit script, splitting the input at anchor lines.
func (e NativeEngine) script(oldLines [][]byte, oldKeys, newKeys []rune, opts *Options) []edit {
	dmp := diffmatchpatch.New()

	switch {
	case opts.Flags()&FlagNeedMinimal != 0:
		dmp.DiffTimeout = 0
	case e.Timeout > 0:
		dmp.DiffTimeout = e.Timeout
	}

	script := make([]edit, 0, max(len(oldKeys), len(newKeys)))
	oldFrom, newFrom := 0, 0

	for _, pair := range anchorPairs(oldLines, oldKeys, newKeys, opts.Anchors()) {
		script = appendSegment(dmp, script, oldKeys, newKeys, oldFrom, pair[0], newFrom, pair[1])
		script = append(script, edit{op: opEqual, old: pair[0], new: pair[1]})
		oldFrom, newFrom = pair[0]+1, pair[1]+1
	}

	script = appendSegment(dmp, script, oldKeys, newKeys, oldFrom, len(oldKeys), newFrom, len(newKeys))

	return orderBlocks(script)
}

func appendSegment(dmp *diffmatchpatch.DiffMatchPatch, script []edit, oldKeys, newKeys []rune,
	oldFrom, oldTo, newFrom, newTo int,
) []edit {
	oi, ni := oldFrom, newFrom

	for _, d := range dmp.DiffMainRunes(oldKeys[oldFrom:oldTo], newKeys[newFrom:newTo], false) {
		n := utf8.RuneCountInString(d.Text)

		for range n {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				script = append(script, edit{op: opEqual, old: oi, new: ni})
				oi++
				ni++
			case diffmatchpatch.DiffDelete:
				script = append(script, edit{op: opDelete, old: oi, new: -1})
				oi++
			case diffmatchpatch.DiffInsert:
				script = append(script, edit{op: opInsert, old: -1, new: ni})
				ni++
			}
		}
	}

	return script
}

// orderBlocks moves every deletion of a change block ahead of its insertions.
func orderBlocks(script []edit) []edit {
	for _, blk := range changeBlocks(script) {
		slices.SortStableFunc(script[blk.start:blk.end], func(x, y edit) int {
			switch {
			case x.op == y.op:
				return 0
			case x.op == opInsert:
				return 1
			default:
				return -1
			}
		})
	}

	return script
}

// changeBlocks returns the maximal runs of non-equal steps.
func changeBlocks(script []edit) []span {
	var blocks []span

	for i := 0; i < len(script); {
		if script[i].op == opEqual {
			i++

			continue
		}

		j := i
		for j < len(script) && script[j].op != opEqual {
			j++
		}

		blocks = append(blocks, span{start: i, end: j})
		i = j
	}

	return blocks
}

// anchorPairs returns increasing (old, new) index pairs of lines that start
// with an anchor and whose key occurs exactly once in each file.
func anchorPairs(oldLines [][]byte, oldKeys, newKeys []rune, anchors []string) [][2]int {
	if len(anchors) == 0 {
		return nil
	}

	oldCount := make(map[rune]int, len(oldKeys))
	for _, k := range oldKeys {
		oldCount[k]++
	}

	newAt := make(map[rune]int, len(newKeys))
	for i, k := range newKeys {
		if _, seen := newAt[k]; seen {
			newAt[k] = -1
		} else {
			newAt[k] = i
		}
	}

	var pairs [][2]int

	last := -1

	for i, line := range oldLines {
		if oldCount[oldKeys[i]] != 1 || !hasAnyPrefix(line, anchors) {
			continue
		}

		j, ok := newAt[oldKeys[i]]
		if !ok || j <= last {
			continue
		}

		pairs = append(pairs, [2]int{i, j})
		last = j
	}

	return pairs
}

func hasAnyPrefix(line []byte, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && bytes.HasPrefix(line, []byte(p)) {
			return true
		}
	}

	return false
}

// interner maps normalized line keys onto distinct runes for go-diff.
type interner struct {
	ids  map[string]rune
	next rune
}

func newInterner() *interner {
	return &interner{ids: make(map[string]rune), next: 1}
}

func (in *interner) keys(lines [][]byte, flags Flags) ([]rune, error) {
	out := make([]rune, len(lines))

	for i, line := range lines {
		key := string(normalize(line, flags))

		id, ok := in.ids[key]
		if !ok {
			if in.next >= 0xD800 && in.next <= 0xDFFF {
				in.next = 0xE000
			}

			if in.next > unicode.MaxRune {
				return nil, fmt.Errorf("%w: more than %d distinct lines", ErrUnsupported, len(in.ids))
			}

			id = in.next
			in.ids[key] = id
			in.next++
		}

		out[i] = id
	}

	return out, nil
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\v' || ch == '\f'
}

// normalize returns the comparison key of line under the whitespace flags.
func normalize(line []byte, flags Flags) []byte {
	if flags&WhitespaceFlags == 0 {
		return line
	}

	switch {
	case flags&FlagIgnoreWhitespace != 0:
		out := make([]byte, 0, len(line))

		for _, ch := range line {
			if !isSpace(ch) {
				out = append(out, ch)
			}
		}

		return out
	case flags&FlagIgnoreWhitespaceChange != 0:
		out := make([]byte, 0, len(line))
		inSpace := false

		for _, ch := range line {
			if isSpace(ch) {
				inSpace = true

				continue
			}

			if inSpace {
				out = append(out, ' ')
				inSpace = false
			}

			out = append(out, ch)
		}

		return out
	case flags&FlagIgnoreWhitespaceAtEOL != 0:
		return bytes.TrimRightFunc(line, func(r rune) bool { return r < utf8.RuneSelf && isSpace(byte(r)) })
	default:
		return bytes.TrimSuffix(line, []byte{'\r'})
	}
}

func isBlank(line []byte) bool {
	for _, ch := range line {
		if !isSpace(ch) {
			return false
		}
	}

	return true
}

// emitter groups an edit script into hunks and feeds them to a sink.
type emitter struct {
	script   []edit
	oldLines [][]byte
	newLines [][]byte
	opts     *Options
	cfg      *EmitConfig

	sink Sink

	oldPos []int
	newPos []int
}

func (d *emitter) run() error {
	d.positions()

	for _, h := range d.hunks() {
		err := d.emit(h)
		if err != nil {
			return err
		}
	}

	return nil
}

// positions records, for every script position, how many old and new lines
// precede it.
func (d *emitter) positions() {
	d.oldPos = make([]int, len(d.script)+1)
	d.newPos = make([]int, len(d.script)+1)

	for i, e := range d.script {
		d.oldPos[i+1], d.newPos[i+1] = d.oldPos[i], d.newPos[i]

		if e.op != opInsert {
			d.oldPos[i+1]++
		}

		if e.op != opDelete {
			d.newPos[i+1]++
		}
	}
}

// hunks returns the script ranges to emit, context included.
func (d *emitter) hunks() []span {
	// Counts past the script length change nothing and would overflow below.
	ctx := min(d.cfg.ContextLines(), len(d.script))
	gap := 2*ctx + min(d.cfg.InterhunkLines(), len(d.script))

	var (
		out     []span
		lastEnd = -1
	)

	for _, blk := range changeBlocks(d.script) {
		if d.ignorable(blk) {
			continue
		}

		h := span{start: max(0, blk.start-ctx), end: min(len(d.script), blk.end+ctx)}

		if len(out) > 0 && blk.start-lastEnd <= gap {
			out[len(out)-1].end = h.end
		} else {
			out = append(out, h)
		}

		lastEnd = blk.end
	}

	if d.cfg.Flags()&EmitFuncContext != 0 {
		out = d.extendToFunctions(out)
	}

	return out
}

// ignorable reports whether every changed line of blk is blank under
// FlagIgnoreBlankLines or matches an ignore pattern.
func (d *emitter) ignorable(blk span) bool {
	blanks := d.opts.Flags()&FlagIgnoreBlankLines != 0
	if !blanks && d.opts.PatternCount() == 0 {
		return false
	}

	for _, e := range d.script[blk.start:blk.end] {
		line := d.lineOf(e)
		if blanks && isBlank(line) {
			continue
		}

		if !d.opts.Ignored(line) {
			return false
		}
	}

	return true
}

// extendToFunctions moves each hunk start back to the enclosing function
// line of the old file, merging hunks that come to overlap.
func (d *emitter) extendToFunctions(hunks []span) []span {
	find := d.findFunc()

	oldAt := make([]int, len(d.oldLines))
	for i, e := range d.script {
		if e.op != opInsert {
			oldAt[e.old] = i
		}
	}

	var out []span

	for _, h := range hunks {
		if fn, _ := FunctionLine(d.oldLines, d.oldPos[h.start], find); fn >= 0 {
			h.start = min(h.start, oldAt[fn])
		}

		if len(out) > 0 && h.start <= out[len(out)-1].end {
			out[len(out)-1].end = max(out[len(out)-1].end, h.end)

			continue
		}

		out = append(out, h)
	}

	return out
}

func (d *emitter) findFunc() FindFunc {
	if find := d.cfg.FindFunc(); find != nil {
		return find
	}

	return DefaultFindFunc
}

func (d *emitter) header(h span) HunkHeader {
	oldStart, newStart := d.oldPos[h.start], d.newPos[h.start]
	oldCount := d.oldPos[h.end] - oldStart
	newCount := d.newPos[h.end] - newStart

	if oldCount > 0 {
		oldStart++
	}

	if newCount > 0 {
		newStart++
	}

	hdr := HunkHeader{OldStart: oldStart, OldCount: oldCount, NewStart: newStart, NewCount: newCount}

	if d.cfg.Flags()&EmitFuncNames != 0 {
		_, hdr.Function = FunctionLine(d.oldLines, d.oldPos[h.start], d.findFunc())
	}

	return hdr
}

func (d *emitter) emit(h span) error {
	hdr := d.header(h)

	if hf := d.cfg.HunkFunc(); hf != nil {
		return hf(hdr.OldStart, hdr.OldCount, hdr.NewStart, hdr.NewCount)
	}

	err := d.sink.OnHunk(hdr)
	if err != nil {
		return err
	}

	for _, e := range d.script[h.start:h.end] {
		kind := LineContext

		switch e.op {
		case opDelete:
			kind = LineDeletion
		case opInsert:
			kind = LineAddition
		case opEqual:
		}

		err = d.sink.OnLine(kind, d.lineOf(e))
		if err != nil {
			return err
		}
	}

	return nil
}

func (d *emitter) lineOf(e edit) []byte {
	if e.op == opInsert {
		return d.newLines[e.new]
	}

	return d.oldLines[e.old]
}
