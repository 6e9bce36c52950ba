package adept

import (
	"bytes"
	"encoding/xml"
	"strings"

	"bindery/internal/services"
)

// Fulfillment holds the fields extracted from a rights server reply.
type Fulfillment struct {
	// DownloadURL is where the licensed content can be fetched.
	DownloadURL string
	// LicenseToken is the server-signed token subtree, preserved verbatim
	// so the rights document embeds exactly what the server issued.
	LicenseToken []byte
	// Title is best-effort descriptive metadata. Never empty: when the
	// reply carries no title, "Book" is substituted.
	Title string
}

// FallbackTitle is used when a fulfillment reply has no metadata title.
const FallbackTitle = "Book"

type replyDocument struct {
	XMLName xml.Name
	Result  struct {
		ResourceItemInfo struct {
			Src          string `xml:"http://ns.adobe.com/adept src"`
			LicenseToken struct {
				InnerXML []byte `xml:",innerxml"`
			} `xml:"http://ns.adobe.com/adept licenseToken"`
			Metadata struct {
				Title string `xml:"http://purl.org/dc/elements/1.1/ title"`
			} `xml:"http://ns.adobe.com/adept metadata"`
		} `xml:"http://ns.adobe.com/adept resourceItemInfo"`
	} `xml:"http://ns.adobe.com/adept fulfillmentResult"`
}

type errorDocument struct {
	XMLName xml.Name
	Data    string `xml:"data,attr"`
}

// ServerError extracts the error payload from a reply whose root element is
// an ADEPT error document. Returns ("", false) for ordinary replies.
func ServerError(reply []byte) (string, bool) {
	trimmed := bytes.TrimSpace(reply)
	if len(trimmed) == 0 {
		return "", false
	}
	var doc errorDocument
	if err := xml.Unmarshal(trimmed, &doc); err != nil {
		return "", false
	}
	if doc.XMLName.Local != "error" {
		return "", false
	}
	if data := strings.TrimSpace(doc.Data); data != "" {
		return data, true
	}
	return string(trimmed), true
}

// ParseFulfillment extracts the download URL, license token, and title from
// a fulfillment reply. A missing download URL or license token is a hard
// parse failure; a missing title falls back to FallbackTitle. Unknown
// sibling elements are ignored.
func ParseFulfillment(reply []byte) (*Fulfillment, error) {
	var doc replyDocument
	if err := xml.Unmarshal(reply, &doc); err != nil {
		return nil, services.Wrap(services.ErrParse, "fulfilling", "parse reply", "Failed to parse fulfillment response", err)
	}

	item := doc.Result.ResourceItemInfo
	downloadURL := strings.TrimSpace(item.Src)
	token := bytes.TrimSpace(item.LicenseToken.InnerXML)
	if downloadURL == "" || len(token) == 0 {
		return nil, services.Wrap(services.ErrParse, "fulfilling", "parse reply", "Failed to parse fulfillment response", nil)
	}

	title := strings.TrimSpace(item.Metadata.Title)
	if title == "" {
		title = FallbackTitle
	}

	return &Fulfillment{
		DownloadURL:  downloadURL,
		LicenseToken: token,
		Title:        title,
	}, nil
}
