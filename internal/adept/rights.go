package adept

import (
	"bytes"
	"encoding/xml"
	"strings"

	"bindery/internal/services"
)

// rightsHeader opens the rights document. Both the default namespace and
// the adept prefix are bound so a token subtree survives verbatim whether
// the server emitted prefixed or default-namespaced elements.
const rightsHeader = `<?xml version="1.0"?>` + "\n" +
	`<rights xmlns="` + adeptNS + `" xmlns:adept="` + adeptNS + `"><licenseToken>`

const rightsFooter = `</licenseToken></rights>` + "\n"

// BuildRights wraps a license token subtree into the self-contained rights
// document consumed by decryptors. The token is embedded verbatim; the
// result is validated before being returned so a malformed token surfaces
// here rather than at decryption time.
func BuildRights(licenseToken []byte) ([]byte, error) {
	token := bytes.TrimSpace(licenseToken)
	if len(token) == 0 {
		return nil, services.Wrap(services.ErrRightsBuild, "fulfilling", "build rights", "Failed to build rights.xml", nil)
	}

	var buf bytes.Buffer
	buf.Grow(len(rightsHeader) + len(token) + len(rightsFooter))
	buf.WriteString(rightsHeader)
	buf.Write(token)
	buf.WriteString(rightsFooter)
	rights := buf.Bytes()

	var doc rightsDocument
	if err := xml.Unmarshal(rights, &doc); err != nil {
		return nil, services.Wrap(services.ErrRightsBuild, "fulfilling", "build rights", "Failed to build rights.xml", err)
	}
	return rights, nil
}

type rightsDocument struct {
	XMLName      xml.Name `xml:"http://ns.adobe.com/adept rights"`
	LicenseToken struct {
		Resource string `xml:"http://ns.adobe.com/adept resource"`
	} `xml:"http://ns.adobe.com/adept licenseToken"`
}

// ExtractResource pulls the resource identifier out of a rights document.
// The document patch operation needs it to bind the rights to the content.
func ExtractResource(rights []byte) (string, error) {
	var doc rightsDocument
	if err := xml.Unmarshal(rights, &doc); err != nil {
		return "", services.Wrap(services.ErrParse, "fulfilling", "extract resource", "Failed to locate resource in rights document", err)
	}
	resource := strings.TrimSpace(doc.LicenseToken.Resource)
	if resource == "" {
		return "", services.Wrap(services.ErrParse, "fulfilling", "extract resource", "Failed to locate resource in rights document", nil)
	}
	return resource, nil
}
