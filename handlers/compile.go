package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"smscompiler/internal/sms"
)

// CompileRequest is the JSON body for POST /api/compile and
// POST /api/compile/report: the SMS source as a single string, so it
// survives JSON transport intact.
type CompileRequest struct {
	Source string `json:"source" binding:"required"`
}

// compileErrorBody is what every failing compile, on either route, renders
// as its JSON error — the compiler's structured CompileError flattened to
// fields a caller can act on without parsing err.Error().
type compileErrorBody struct {
	Error  string `json:"error"`
	Kind   int    `json:"kind"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Word   string `json:"word"`
}

func renderCompileError(c *gin.Context, err error) {
	if ce, ok := err.(*sms.CompileError); ok {
		c.JSON(http.StatusBadRequest, compileErrorBody{
			Error:  ce.Error(),
			Kind:   int(ce.Kind),
			Line:   ce.Line,
			Column: ce.Column,
			Word:   ce.Word,
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// Compile handles POST /api/compile: SMS source in, a Standard MIDI File
// out.
func Compile(c *gin.Context) {
	var req CompileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	smf, _, err := sms.Compile([]byte(req.Source))
	if err != nil {
		renderCompileError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/midi", smf)
}

// reportResponse is the JSON shape of a successful compile's summary.
type reportResponse struct {
	Name     string `json:"name"`
	Tracks   int    `json:"tracks"`
	Events   int    `json:"events"`
	Words    int    `json:"words"`
	Lines    int    `json:"lines"`
	DrumKeys int    `json:"drumKeys"`
	Chords   int    `json:"chords"`
	Arps     int    `json:"arps"`
	Macros   int    `json:"macros"`
	PPQN     int    `json:"ppqn"`
	BPM      int    `json:"bpm"`
	Summary  string `json:"summary"`
}

// CompileReport handles POST /api/compile/report: same input as Compile,
// but answers with the compiler's Report instead of the SMF bytes.
func CompileReport(c *gin.Context) {
	var req CompileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	_, report, err := sms.Compile([]byte(req.Source))
	if err != nil {
		renderCompileError(c, err)
		return
	}
	c.JSON(http.StatusOK, reportResponse{
		Name:     report.Name,
		Tracks:   report.Tracks,
		Events:   report.Events,
		Words:    report.Words,
		Lines:    report.Lines,
		DrumKeys: report.DrumKeys,
		Chords:   report.Chords,
		Arps:     report.Arps,
		Macros:   report.Macros,
		PPQN:     report.PPQN,
		BPM:      report.BPM,
		Summary:  report.String(),
	})
}
