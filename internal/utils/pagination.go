package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/pmbot/internal/constants"
)

// Page is a validated page request
type Page struct {
	Number int
	Size   int
}

// PageFromQuery reads ?page= and ?limit=, falling back to defaults for anything out of range
func PageFromQuery(c *gin.Context) Page {
	number, err := strconv.Atoi(c.Query("page"))
	if err != nil || number < constants.MinPageSize {
		number = constants.MinPageSize
	}

	size, err := strconv.Atoi(c.Query("limit"))
	if err != nil || size < constants.MinPageSize || size > constants.MaxPageSize {
		size = constants.DefaultPageSize
	}

	return Page{Number: number, Size: size}
}

// TotalPages returns how many pages of size hold total rows, at least 1
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}
