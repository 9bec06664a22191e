package handlers

import (
	"io/fs"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"smscompiler/data"
)

// ListExamples handles GET /api/examples: the names of every embedded demo
// .sms script, without the extension.
func ListExamples(c *gin.Context) {
	entries, err := fs.ReadDir(data.ExamplesFS, "examples")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sms") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".sms"))
	}
	sort.Strings(names)
	c.JSON(http.StatusOK, names)
}
