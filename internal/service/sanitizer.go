package service

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// richTextPolicy keeps basic formatting in lecturer-authored descriptions.
var richTextPolicy = bluemonday.UGCPolicy()

// plainTextPolicy strips all markup from grading feedback.
var plainTextPolicy = bluemonday.StrictPolicy()

func sanitizeRichText(value string) string {
	return strings.TrimSpace(richTextPolicy.Sanitize(value))
}

func sanitizePlainText(value string) string {
	return strings.TrimSpace(plainTextPolicy.Sanitize(value))
}
