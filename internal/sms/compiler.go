package sms

const (
	defaultOctave   = 5
	defaultDuration = 4
	defaultVolume   = 127
	defaultBPM      = 120
	defaultPPQN     = 96
	drumChannel     = 9
)

// cmdType tags which definition header is currently active on a line.
type cmdType int

const (
	cmdNone cmdType = iota
	cmdHeader
	cmdInst
	cmdDrum
	cmdChord
	cmdArp
	cmdMacro
)

type macroMode int

const (
	macroIdle macroMode = iota
	macroDefining
)

// wordKind records what the previous top-level word was, for the
// repeater's "replay the previous word" rule.
type wordKind int

const (
	wordNone wordKind = iota
	wordNote
	wordChord
	wordMacro
)

// trackDefaults are the note attributes that persist across notes on a
// track until the next newline or macro entry resets them.
type trackDefaults struct {
	Octave   int
	Duration int
	Volume   int
}

func newTrackDefaults() trackDefaults {
	return trackDefaults{Octave: defaultOctave, Duration: defaultDuration, Volume: defaultVolume}
}

// heldNote is a note sounding past its nominal duration because its token
// ended in "_"; its note-off is deferred until the next note attempt on the
// same track, one tick before that note's own start.
type heldNote struct {
	Pitch  int
	Volume int
}

type track struct {
	Name        string
	Channel     int
	Bank        int
	Program     int
	Defaults    trackDefaults
	PendingHold *heldNote
}

type drumKeyDef struct {
	Name string
	Key  int
}

// macroDef is the shared payload for both macros and arps: a name, the
// source line it was defined on, and its recorded body words. IsArp
// distinguishes how its body words are interpreted at expansion time, even
// though the two now live under separate symbol-table kinds.
type macroDef struct {
	Name  string
	Line  int
	Words []string
	IsArp bool
}

type blockState struct {
	Active bool
	Start  int
	End    int
}

type groupState struct {
	Active bool
	Start  int
	End    int
	Bar    int
}

// macroPlayback walks a macro's recorded word list, optionally restarting
// from the top remaining more times; it is the token source the reader
// drains before returning to the tokenizer.
type macroPlayback struct {
	def       *macroDef
	idx       int
	remaining int
}

// word is one unit handed to the dispatcher: either a multi-character word
// or (when len(Text)==1) a single-character token, unifying tokWord/tokChar
// from the tokenizer with macro-body words recorded the same way.
type word struct {
	Text string
	Line int
	Col  int
}

func isNewlineWord(w word) bool {
	return len(w.Text) == 1 && (w.Text[0] == '\n' || w.Text[0] == '\r')
}

func isLetterStart(s string) bool {
	if len(s) == 0 {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// compiler holds every piece of state the single-pass dispatch loop
// threads through: the header under construction, the symbol table, the
// event list, the current track/track-defaults, and the nested
// comment/macro/time-block/time-group/repeater state machine.
type compiler struct {
	header headerInfo

	symbols    *symbolTable
	tracks     []*track
	defaultTrk *track
	drumTrk    *track
	currentTrk *track

	currentDKey     *drumKeyDef
	currentBaseNote *int

	defInst       *track
	defDrum       *drumKeyDef
	definingChord *chordDef
	definingArp   *macroDef
	definingMacro *macroDef

	events *eventList

	cmdType      cmdType
	comment      bool
	blockComment bool

	macroMode     macroMode
	macroPlayback *macroPlayback
	lastMacroDef  *macroDef

	timeblock blockState
	timegroup groupState

	replayCount int
	replayWord  word
	lastWord    string
	lastWordKnd wordKind

	playingArp     *macroDef
	playingArpWord string

	sngTime int
	barTime int

	lineWordIndex int
	lines         int
	words         int

	tokzr *tokenizer
}

type headerInfo struct {
	Name     string
	BPM      int
	PPQN     int
	Bar      int // ticks per bar
	DRK      int
	Tracks   int
	DrumKeys int
	Macros   int
	Chords   int
	Arps     int
}

func newCompiler(source []byte) *compiler {
	c := &compiler{
		symbols: newSymbolTable(),
		events:  newEventList(),
		tokzr:   newTokenizer(source),
	}
	installBuiltinChords(c.symbols)

	c.header = headerInfo{Name: "song", BPM: defaultBPM, PPQN: defaultPPQN, Bar: defaultPPQN * 4, Tracks: 2, DrumKeys: 1}

	defaultTrk := &track{Name: "INST", Channel: 0, Defaults: newTrackDefaults()}
	drumTrk := &track{Name: "DRUM", Channel: drumChannel, Defaults: newTrackDefaults()}
	c.defaultTrk = defaultTrk
	c.drumTrk = drumTrk
	c.tracks = []*track{defaultTrk, drumTrk}
	c.currentTrk = defaultTrk
	c.symbols.declare(defaultTrk.Name, symInstrument, defaultTrk)
	c.symbols.declare(drumTrk.Name, symInstrument, drumTrk)

	tickKey := &drumKeyDef{Name: "TICK:", Key: 31}
	c.currentDKey = tickKey
	c.symbols.declare(tickKey.Name, symDrumKey, tickKey)

	return c
}

// fail builds the structured error for the current word, attaching the
// macro/arp expansion frame when one is active so the caller sees both the
// outer position and the position inside the expansion.
func (c *compiler) fail(kind ErrorKind, w word) *CompileError {
	e := newErr(kind, w.Line, w.Col, w.Text)
	if c.playingArp != nil {
		e.Expansion = &ExpansionFrame{Kind: "arp", Name: c.playingArp.Name, Line: c.playingArp.Line, Word: c.playingArpWord}
	} else if mp := c.macroPlayback; mp != nil {
		e.Expansion = &ExpansionFrame{Kind: "macro", Name: mp.def.Name, Line: mp.def.Line, Word: w.Text}
	}
	return e
}

func (c *compiler) emitAt(trk *track, time int, status, data1, data2 byte) {
	c.events.append(trk.Name, time, status, data1, data2)
}

func (c *compiler) realignToBar() {
	if c.barTime != 0 {
		c.sngTime += c.header.Bar - c.barTime
	}
	c.barTime = 0
}

// openTimeGroup, closeTimeGroup, and handleBarline implement the ( ) |
// timing tokens; they are shared between the top-level dispatcher and the
// arp playback loop, which accepts the same three tokens inside an arp body.
func (c *compiler) openTimeGroup(w word) error {
	if c.timegroup.Active {
		return c.fail(ErrTimeGroup, w)
	}
	c.timegroup = groupState{Active: true, Start: c.sngTime, End: c.sngTime, Bar: c.barTime}
	return nil
}

func (c *compiler) closeTimeGroup(w word) error {
	if !c.timegroup.Active {
		return c.fail(ErrTimeGroup, w)
	}
	if c.timegroup.End < c.sngTime {
		c.timegroup.End = c.sngTime
	}
	c.sngTime = c.timegroup.End
	c.barTime = c.timegroup.Bar + (c.timegroup.End - c.timegroup.Start)
	c.timegroup = groupState{}
	return nil
}

func (c *compiler) handleBarline(w word) error {
	if c.timegroup.Active {
		return c.fail(ErrTimeGroup, w)
	}
	if c.barTime > c.header.Bar {
		return c.fail(ErrBar, w)
	}
	c.realignToBar()
	return nil
}

// afterEventTiming stretches the enclosing time block/group to cover the
// event that just advanced sngTime.
func (c *compiler) afterEventTiming() {
	if c.timeblock.Active && c.timeblock.End < c.sngTime {
		c.timeblock.End = c.sngTime
	}
	if c.timegroup.Active && c.timegroup.End < c.sngTime {
		c.timegroup.End = c.sngTime
	}
}

// noteTicks computes a note's tick length from its duration denominator
// and dotted flag: ppqn*4/denom, plus half again if dotted.
func (c *compiler) noteTicks(denom int, dot bool) int {
	base := c.header.PPQN * 4 / denom
	if dot {
		base += base / 2
	}
	return base
}

// releaseHeldNote emits the deferred note-off for a "_"-held note one tick
// before now, if one is pending on trk.
func (c *compiler) releaseHeldNote(trk *track, channel byte) {
	if trk.PendingHold == nil {
		return
	}
	h := trk.PendingHold
	c.emitAt(trk, c.sngTime-1, 0x80+channel, byte(h.Pitch), byte(h.Volume))
	trk.PendingHold = nil
}

// startMacroExpansion begins (or re-begins, for a repeater) playback of a
// macro/arp body. extraRepeats schedules that many additional full passes
// once the first one drains.
func (c *compiler) startMacroExpansion(def *macroDef, extraRepeats int) {
	c.macroPlayback = &macroPlayback{def: def, remaining: extraRepeats}
}

// readNextWord pulls the next unit of input: a pending single-word replay
// (from "*N" following a NOTE/CHORD), a macro-body word, or a fresh token
// from the tokenizer.
func (c *compiler) readNextWord() (word, bool) {
	if c.replayCount > 0 {
		c.replayCount--
		return c.replayWord, false
	}
	if c.macroPlayback != nil {
		return c.macroNextWord()
	}
	tok := c.tokzr.next()
	if tok.Kind == tokEOD {
		return word{}, true
	}
	return word{Text: tok.Text, Line: tok.Line, Col: tok.Col}, false
}

func (c *compiler) macroNextWord() (word, bool) {
	mp := c.macroPlayback
	if mp.idx >= len(mp.def.Words) {
		if mp.remaining > 0 {
			mp.remaining--
			mp.idx = 0
		} else {
			c.macroPlayback = nil
			c.lastMacroDef = mp.def
			c.lastWordKnd = wordMacro
			c.lastWord = mp.def.Name
			return c.readNextWord()
		}
	}
	w := word{Text: mp.def.Words[mp.idx], Line: mp.def.Line, Col: mp.idx}
	mp.idx++
	return w, false
}

// Compile translates SMS source into a Standard MIDI File. On success it
// returns the finished byte buffer and a human-readable summary report; on
// the first violation it returns a *CompileError.
func Compile(source []byte) ([]byte, *Report, error) {
	c := newCompiler(source)

	for {
		w, eod := c.readNextWord()
		if eod {
			break
		}
		c.words++
		if err := c.dispatch(w); err != nil {
			return nil, nil, err
		}
	}

	if c.macroMode == macroDefining {
		return nil, nil, newErr(ErrMacroBraces, c.lines, c.lineWordIndex, "")
	}
	if c.timeblock.Active {
		return nil, nil, newErr(ErrTimeBlock, c.lines, c.lineWordIndex, "")
	}
	if c.blockComment {
		return nil, nil, newErr(ErrBlockComment, c.lines, c.lineWordIndex, "")
	}

	c.realignToBar()
	c.emitAt(c.currentTrk, c.sngTime, 0xB0+byte(c.currentTrk.Channel), 0x7B, 0)

	smfBytes, report, err := c.finalize()
	if err != nil {
		return nil, nil, err
	}
	return smfBytes, report, nil
}

func (c *compiler) dispatch(w word) error {
	if isNewlineWord(w) {
		return c.handleNewline(w)
	}

	c.lineWordIndex++

	if w.Text == "//" {
		c.comment = true
	}
	if w.Text == "/*" {
		if c.blockComment {
			return c.fail(ErrBlockComment, w)
		}
		c.blockComment = true
	}
	if w.Text == "*/" {
		if !c.blockComment {
			return c.fail(ErrBlockComment, w)
		}
		c.blockComment = false
		// The rest of the line after a closing */ is treated as comment.
		c.comment = true
	}
	if c.comment || c.blockComment {
		return nil
	}

	if c.macroMode == macroDefining {
		return c.defineMacro(w)
	}

	if c.lineWordIndex == 1 {
		switch w.Text {
		case "H:":
			c.cmdType = cmdHeader
			return nil
		case "I:":
			c.cmdType = cmdInst
			return nil
		case "D:":
			c.cmdType = cmdDrum
			return nil
		case "C:":
			c.cmdType = cmdChord
			return nil
		case "A:":
			c.cmdType = cmdArp
			return nil
		case "M:":
			c.cmdType = cmdMacro
			return nil
		}
	}

	if c.cmdType != cmdNone {
		return c.dispatchDefinition(w)
	}

	if n, ok := parseRepeater(w.Text); ok {
		if n < 1 {
			return c.fail(ErrRepeater, w)
		}
		switch c.lastWordKnd {
		case wordNote, wordChord:
			c.replayCount = n
			c.replayWord = word{Text: c.lastWord, Line: w.Line, Col: w.Col}
		case wordMacro:
			// The new expansion is itself one of the n additional passes.
			c.startMacroExpansion(c.lastMacroDef, n-1)
		default:
			return c.fail(ErrRepeaterLastWord, w)
		}
		return nil
	}

	if sym, ok := c.symbols.lookup(w.Text); ok {
		switch sym.kind {
		case symInstrument:
			trk := sym.payload.(*track)
			c.currentTrk = trk
			c.emitAt(trk, c.sngTime, 0xB0+byte(trk.Channel), 0, byte(trk.Bank))
			c.emitAt(trk, c.sngTime, 0xC0+byte(trk.Channel), byte(trk.Program), 0)
			c.realignToBar()
			return nil
		case symDrumKey:
			c.currentDKey = sym.payload.(*drumKeyDef)
			c.currentTrk = c.drumTrk
			return nil
		case symMacro:
			if c.macroPlayback != nil {
				return c.fail(ErrMacroNested, w)
			}
			def := sym.payload.(*macroDef)
			// Defaults reset as on a new line, but the current track stays.
			c.currentTrk.Defaults = newTrackDefaults()
			c.currentBaseNote = nil
			c.cmdType = cmdNone
			c.startMacroExpansion(def, 0)
			return nil
		case symChord, symArp:
			return c.fail(ErrNotAllowed, w)
		}
	}

	if len(w.Text) == 1 {
		switch w.Text[0] {
		case '[':
			if c.timeblock.Active {
				return c.fail(ErrBlock, w)
			}
			c.timeblock = blockState{Active: true, Start: c.sngTime, End: c.sngTime}
			// The rest of a [ or ] line is ignored.
			c.comment = true
			return nil
		case ']':
			if !c.timeblock.Active {
				return c.fail(ErrBlock, w)
			}
			if c.timeblock.End < c.sngTime {
				c.timeblock.End = c.sngTime
			}
			if c.timegroup.Active && c.timegroup.End < c.sngTime {
				c.timegroup.End = c.sngTime
			}
			c.sngTime = c.timeblock.End
			c.timeblock = blockState{}
			c.comment = true
			return nil
		case '(':
			return c.openTimeGroup(w)
		case ')':
			return c.closeTimeGroup(w)
		case '|':
			return c.handleBarline(w)
		}
	}

	if v, matched, errKind := parseBPM(w.Text); matched {
		if errKind != ErrNone {
			return c.fail(errKind, w)
		}
		c.emitAt(c.currentTrk, c.sngTime, 0xB0+byte(c.currentTrk.Channel), 0x7B, 0)
		c.events.appendTempo(c.currentTrk.Name, c.sngTime, v)
		return nil
	}
	if q, matched, errKind := parseBar(w.Text); matched {
		if errKind != ErrNone {
			return c.fail(errKind, w)
		}
		c.header.Bar = c.header.PPQN * q
		return nil
	}

	if len(w.Text) > 0 && w.Text[0] == '@' {
		cc, v, errKind := parseMidiCC(w.Text)
		if errKind == ErrNone {
			c.emitAt(c.currentTrk, c.sngTime, 0xB0+byte(c.currentTrk.Channel), byte(cc), byte(v))
			return nil
		}
		if errKind != ErrNoCommand {
			return c.fail(errKind, w)
		}
	}

	if pitch, ok, errKind := parseBaseNote(w.Text); errKind != ErrNone {
		return c.fail(errKind, w)
	} else if ok {
		p := pitch
		c.currentBaseNote = &p
		return nil
	}

	if handled, err := c.dispatchNote(w); handled {
		if err == nil {
			c.lastWordKnd = wordNote
			c.lastWord = w.Text
		}
		return err
	}

	if err := c.dispatchChord(w); err != nil {
		return err
	}
	c.lastWordKnd = wordChord
	c.lastWord = w.Text
	return nil
}

func (c *compiler) handleNewline(w word) error {
	if c.macroPlayback == nil {
		c.lines++
		c.lineWordIndex = 0
	}
	c.comment = false

	if c.macroMode == macroDefining {
		c.macroBodyAppend("\n")
		return nil
	}

	if c.barTime != 0 {
		if c.barTime > c.header.Bar {
			c.barTime %= c.header.Bar
		}
		c.sngTime += c.header.Bar - c.barTime
		c.barTime = 0
	}

	if c.timeblock.Active {
		if c.timeblock.End < c.sngTime {
			c.timeblock.End = c.sngTime
		}
		if c.timegroup.Active && c.timegroup.End < c.sngTime {
			c.timegroup.End = c.sngTime
		}
		c.sngTime = c.timeblock.Start
	}
	if c.timegroup.Active {
		return c.fail(ErrTimeGroup, w)
	}

	if c.macroPlayback == nil && !c.timeblock.Active {
		c.currentTrk = c.defaultTrk
	}
	for _, trk := range c.tracks {
		trk.Defaults = newTrackDefaults()
	}
	c.currentBaseNote = nil
	c.cmdType = cmdNone
	c.defInst = nil
	c.defDrum = nil
	c.definingChord = nil
	c.definingArp = nil
	return nil
}

// dispatchDefinition routes a word on an H:/I:/D:/C:/A:/M: line to the
// handler for the command type currently active.
func (c *compiler) dispatchDefinition(w word) error {
	switch c.cmdType {
	case cmdHeader:
		return c.defineHeader(w)
	case cmdInst:
		return c.defineInst(w)
	case cmdDrum:
		return c.defineDrum(w)
	case cmdChord:
		return c.defineChord(w)
	case cmdArp:
		return c.defineArp(w)
	case cmdMacro:
		return c.defineMacro(w)
	}
	return nil
}

func (c *compiler) defineHeader(w word) error {
	if c.lineWordIndex == 2 {
		if !isLetterStart(w.Text) {
			return c.fail(ErrName2, w)
		}
		c.header.Name = w.Text
		return nil
	}
	p, errKind := parseHeaderParam(w.Text)
	if errKind != ErrNone {
		return c.fail(errKind, w)
	}
	switch p.Kind {
	case headerPPQN:
		// Rescale the current bar length to the new resolution.
		c.header.Bar = c.header.Bar / c.header.PPQN * p.PPQN
		c.header.PPQN = p.PPQN
	case headerBPM:
		c.header.BPM = p.BPM
	case headerBar:
		c.header.Bar = c.header.PPQN * p.BarQuarters
	case headerDRK:
		c.header.DRK = p.DRK
		c.drumTrk.Program = p.DRK
	}
	return nil
}

func (c *compiler) defineInst(w word) error {
	if c.lineWordIndex == 2 {
		if !isLetterStart(w.Text) {
			return c.fail(ErrName2, w)
		}
		if _, exists := c.symbols.lookup(w.Text); exists {
			return c.fail(ErrName, w)
		}
		trk := &track{Name: w.Text, Defaults: newTrackDefaults()}
		c.symbols.declare(trk.Name, symInstrument, trk)
		c.tracks = append(c.tracks, trk)
		c.header.Tracks++
		c.defInst = trk
		return nil
	}
	if c.defInst == nil {
		return nil
	}
	p, errKind := parseInstParam(w.Text)
	if errKind != ErrNone {
		return c.fail(errKind, w)
	}
	switch p.Kind {
	case instBank:
		c.defInst.Bank = p.Value
	case instProgram:
		c.defInst.Program = p.Value
	case instChannel:
		c.defInst.Channel = p.Value
	}
	if c.defInst.Channel == drumChannel {
		c.defInst.Bank = 0
	}
	return nil
}

func (c *compiler) defineDrum(w word) error {
	if c.lineWordIndex == 2 {
		if !isLetterStart(w.Text) {
			return c.fail(ErrName2, w)
		}
		if _, exists := c.symbols.lookup(w.Text); exists {
			return c.fail(ErrName, w)
		}
		dk := &drumKeyDef{Name: w.Text, Key: 31}
		c.symbols.declare(dk.Name, symDrumKey, dk)
		c.header.DrumKeys++
		c.defDrum = dk
		return nil
	}
	if c.defDrum == nil {
		return nil
	}
	v, errKind := parseDrumParam(w.Text)
	if errKind != ErrNone {
		return c.fail(errKind, w)
	}
	c.defDrum.Key = v
	return nil
}

func (c *compiler) defineChord(w word) error {
	if c.lineWordIndex == 2 {
		if !isLetterStart(w.Text) {
			return c.fail(ErrName2, w)
		}
		if _, exists := c.symbols.lookup(w.Text); exists {
			return c.fail(ErrName, w)
		}
		cd := &chordDef{Name: w.Text}
		c.symbols.declare(cd.Name, symChord, cd)
		c.header.Chords++
		c.definingChord = cd
		return nil
	}
	if c.definingChord == nil {
		return nil
	}
	v, size := parseNumber(w.Text)
	if size == 0 || size != len(w.Text) || v > noteMaxOffset {
		return c.fail(ErrChordSyntax, w)
	}
	if len(c.definingChord.Offsets) >= 7 {
		return c.fail(ErrListMax, w)
	}
	c.definingChord.Offsets = append(c.definingChord.Offsets, v)
	return nil
}

func (c *compiler) defineArp(w word) error {
	if c.lineWordIndex == 2 {
		if !isLetterStart(w.Text) {
			return c.fail(ErrName2, w)
		}
		if _, exists := c.symbols.lookup(w.Text); exists {
			return c.fail(ErrName, w)
		}
		ad := &macroDef{Name: w.Text, Line: w.Line, IsArp: true}
		c.symbols.declare(ad.Name, symArp, ad)
		c.header.Arps++
		c.definingArp = ad
		return nil
	}
	if c.definingArp == nil {
		return nil
	}
	if len(w.Text) == 1 {
		switch w.Text[0] {
		case '{', '}', '[', ']':
			return c.fail(ErrArpSymbol, w)
		}
	}
	c.definingArp.Words = append(c.definingArp.Words, w.Text)
	return nil
}

// defineMacro handles every word on an M: line, including the "{"/"}" body
// delimiters and — via the compiler's top-level macroMode dispatch —
// ordinary body words and embedded newlines during DEFINING.
func (c *compiler) defineMacro(w word) error {
	if c.macroMode == macroDefining {
		switch w.Text {
		case "}":
			c.macroMode = macroIdle
			c.definingMacro = nil
			c.cmdType = cmdNone
			// The rest of the } line is ignored.
			c.comment = true
			return nil
		case "{":
			return c.fail(ErrMacro, w)
		default:
			if sym, ok := c.symbols.lookup(w.Text); ok && sym.kind == symMacro {
				return c.fail(ErrMacroNested, w)
			}
			c.macroBodyAppend(w.Text)
			return nil
		}
	}
	if c.lineWordIndex == 2 {
		if !isLetterStart(w.Text) {
			return c.fail(ErrName2, w)
		}
		if _, exists := c.symbols.lookup(w.Text); exists {
			return c.fail(ErrName, w)
		}
		c.definingMacro = &macroDef{Name: w.Text, Line: w.Line}
		return nil
	}
	if c.lineWordIndex == 3 {
		if w.Text != "{" {
			return c.fail(ErrMacro, w)
		}
		c.symbols.declare(c.definingMacro.Name, symMacro, c.definingMacro)
		c.header.Macros++
		c.macroMode = macroDefining
		return nil
	}
	return c.fail(ErrMacro, w)
}

func (c *compiler) macroBodyAppend(text string) {
	c.definingMacro.Words = append(c.definingMacro.Words, text)
}

// dispatchNote attempts to interpret w as a note/rest/beat token for the
// current track (or the current base-note offset mode). handled is false
// when w simply isn't shaped like a note, so the caller can try chord
// syntax instead.
func (c *compiler) dispatchNote(w word) (bool, error) {
	trk := c.currentTrk
	var ctx noteContext
	switch {
	case trk == c.drumTrk:
		ctx = ctxDrum
	case c.currentBaseNote != nil:
		ctx = ctxBaseNote
	default:
		ctx = ctxInstrument
	}

	seed := 0
	if ctx == ctxInstrument {
		seed = trk.Defaults.Octave
	}
	n, errKind := parseNote(w.Text, ctx, seed)
	if errKind == ErrNoCommand {
		return false, nil
	}
	if errKind != ErrNone {
		return true, c.fail(errKind, w)
	}

	if ctx == ctxInstrument {
		trk.Defaults.Octave = n.Oct
	}
	if n.HasDuration {
		trk.Defaults.Duration = n.Duration
	}
	if n.HasVolume {
		trk.Defaults.Volume = n.Volume
	}

	ticks := c.noteTicks(trk.Defaults.Duration, n.Dot)
	channel := byte(trk.Channel)

	// Inside a time group every note restarts at the group's start time.
	if c.timegroup.Active {
		c.sngTime = c.timegroup.Start
	}
	c.releaseHeldNote(trk, channel)

	if !n.IsPause {
		var pitch int
		switch ctx {
		case ctxDrum:
			pitch = c.currentDKey.Key
		case ctxBaseNote:
			pitch = *c.currentBaseNote + n.Key
		default:
			pitch = n.Key + n.Halftone + n.Oct*12
		}
		if pitch < 0 || pitch > 127 {
			return true, c.fail(ErrNote, w)
		}
		velocity := byte(trk.Defaults.Volume)
		c.emitAt(trk, c.sngTime, 0x90+channel, byte(pitch), velocity)
		if n.Hold {
			trk.PendingHold = &heldNote{Pitch: pitch, Volume: int(velocity)}
		} else {
			c.emitAt(trk, c.sngTime+ticks-1, 0x80+channel, byte(pitch), velocity)
		}
	}

	c.sngTime += ticks
	c.barTime += ticks
	c.afterEventTiming()
	return true, nil
}

// dispatchChord handles a "ROOT[#]chordname[~arpname]" token: either a
// simultaneous bar-long chord, or — with an arp suffix — a sequence of
// notes picked from the chord's offsets.
func (c *compiler) dispatchChord(w word) error {
	cw, errKind := parseChordWord(w.Text)
	if errKind != ErrNone {
		return c.fail(errKind, w)
	}
	sym, ok := c.symbols.lookup(cw.ChordName)
	if !ok || sym.kind != symChord {
		return c.fail(ErrKeyChord, w)
	}
	chord := sym.payload.(*chordDef)

	trk := c.currentTrk
	channel := byte(trk.Channel)
	root := cw.RootKey + cw.Halftone

	if !cw.HasArp {
		barTicks := c.header.Bar
		c.releaseHeldNote(trk, channel)
		for _, off := range chord.Offsets {
			pitch := chordOctave*12 + root + off
			if pitch < 0 || pitch > 127 {
				return c.fail(ErrNote, w)
			}
			c.emitAt(trk, c.sngTime, 0x90+channel, byte(pitch), 127)
		}
		for _, off := range chord.Offsets {
			pitch := chordOctave*12 + root + off
			c.emitAt(trk, c.sngTime+barTicks-1, 0x80+channel, byte(pitch), 127)
		}
		c.sngTime += barTicks
		c.barTime += barTicks
		c.afterEventTiming()
		return nil
	}

	asym, ok := c.symbols.lookup(cw.ArpName)
	if !ok || asym.kind != symArp {
		return c.fail(ErrArp, w)
	}
	arp := asym.payload.(*macroDef)

	c.playingArp = arp
	defer func() { c.playingArp = nil }()

	c.releaseHeldNote(trk, channel)

	// Duration, volume, and the octave accumulator live for this one arp
	// invocation only; they never touch the track's own note defaults.
	st := arpState{Duration: defaultDuration, Volume: defaultVolume}
	for _, tok := range arp.Words {
		c.playingArpWord = tok
		var err error
		switch tok {
		case "(":
			err = c.openTimeGroup(w)
		case ")":
			err = c.closeTimeGroup(w)
		case "|":
			err = c.handleBarline(w)
		default:
			err = c.playArpToken(trk, channel, root, chord, tok, &st, w)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// arpState carries the note attributes threaded through one chord-with-arp
// invocation: the octave offset relative to chordOctave, and the running
// duration/volume, all reset at every new invocation.
type arpState struct {
	Oct      int
	Duration int
	Volume   int
}

// playArpToken plays one note/pause token of an arp body against chord.
func (c *compiler) playArpToken(trk *track, channel byte, root int, chord *chordDef, tok string, st *arpState, w word) error {
	n, errKind := parseNote(tok, ctxArp, st.Oct)
	if errKind != ErrNone {
		return c.fail(errKind, w)
	}
	st.Oct = n.Oct
	if n.HasDuration {
		st.Duration = n.Duration
	}
	if n.HasVolume {
		st.Volume = n.Volume
	}
	ticks := c.noteTicks(st.Duration, n.Dot)

	if n.IsPause {
		c.sngTime += ticks
		c.barTime += ticks
		c.afterEventTiming()
		return nil
	}

	oct := chordOctave + n.Oct
	if oct < 1 || oct > 10 {
		return c.fail(ErrOctave, w)
	}
	idx := n.Key
	if idx < 0 || idx >= len(chord.Offsets) {
		return c.fail(ErrNoteOffset, w)
	}
	pitch := oct*12 + root + chord.Offsets[idx]
	if pitch < 0 || pitch > 127 {
		return c.fail(ErrNote, w)
	}
	if c.timegroup.Active {
		c.sngTime = c.timegroup.Start
	}
	c.emitAt(trk, c.sngTime, 0x90+channel, byte(pitch), byte(st.Volume))
	c.sngTime += ticks
	c.barTime += ticks
	c.emitAt(trk, c.sngTime, 0x80+channel, byte(pitch), byte(st.Volume))
	c.afterEventTiming()
	return nil
}
