package adept

import (
	"encoding/xml"
	"strings"

	"bindery/internal/services"
)

// adeptNS is the ADEPT protocol namespace used by request and reply documents.
const adeptNS = "http://ns.adobe.com/adept"

// dcNS is the Dublin Core namespace carrying descriptive metadata.
const dcNS = "http://purl.org/dc/elements/1.1/"

// Request is the parsed form of a license request artifact (.acsm file).
type Request struct {
	// OperatorURL is the base endpoint of the rights server that issued
	// the artifact.
	OperatorURL string
	// Title is the advertised title, when the artifact carries metadata.
	// Empty when absent; callers fall back to a derived name.
	Title string
}

type requestDocument struct {
	XMLName          xml.Name
	OperatorURL      string `xml:"http://ns.adobe.com/adept operatorURL"`
	ResourceItemInfo struct {
		Metadata struct {
			Title string `xml:"http://purl.org/dc/elements/1.1/ title"`
		} `xml:"http://ns.adobe.com/adept metadata"`
	} `xml:"http://ns.adobe.com/adept resourceItemInfo"`
}

// ParseRequest extracts the operator endpoint and optional title from a
// license request artifact. A missing operator URL is a hard failure; the
// artifact cannot be fulfilled without knowing where to send it.
func ParseRequest(artifact []byte) (*Request, error) {
	var doc requestDocument
	if err := xml.Unmarshal(artifact, &doc); err != nil {
		return nil, services.Wrap(services.ErrParse, "fulfilling", "parse request artifact", "Failed to parse license request", err)
	}
	operator := strings.TrimSpace(doc.OperatorURL)
	if operator == "" {
		return nil, services.Wrap(services.ErrParse, "fulfilling", "parse request artifact", "License request has no operator URL", nil)
	}
	return &Request{
		OperatorURL: strings.TrimRight(operator, "/"),
		Title:       strings.TrimSpace(doc.ResourceItemInfo.Metadata.Title),
	}, nil
}
