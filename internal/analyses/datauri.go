package analyses

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var dataURIPattern = regexp.MustCompile(`^data:([a-zA-Z0-9]+/[a-zA-Z0-9\-.+]+);base64,(.+)$`)

// Payload is the decoded content of a data URI.
type Payload struct {
	MIMEType string
	Content  []byte
}

// DecodeDataURI extracts the MIME type and bytes from "data:<type>/<subtype>;base64,<data>".
func DecodeDataURI(uri string) (Payload, error) {
	m := dataURIPattern.FindStringSubmatch(uri)
	if m == nil {
		return Payload{}, invalid("fileData", "Invalid file data format")
	}
	content, err := decodeBase64(m[2])
	if err != nil || len(content) == 0 {
		return Payload{}, invalid("fileData", "Invalid file data format")
	}
	return Payload{MIMEType: m[1], Content: content}, nil
}

// EncodeDataURI is the inverse of DecodeDataURI.
func EncodeDataURI(mimeType string, content []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(content)
}

// Browsers emit padded standard base64; unpadded input is accepted too.
func decodeBase64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	out, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return out, nil
	}
	return base64.RawStdEncoding.DecodeString(s)
}
