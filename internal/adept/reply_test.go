package adept

import (
	"errors"
	"strings"
	"testing"

	"bindery/internal/services"
)

const sampleReply = `<?xml version="1.0"?>
<envelope xmlns="http://ns.adobe.com/adept">
  <fulfillmentResult>
    <fulfillment>true</fulfillment>
    <resourceItemInfo>
      <resource>urn:uuid:12345678-1234-1234-1234-123456789abc</resource>
      <src>https://cdn.example.com/books/moby.epub</src>
      <licenseToken>
        <user>urn:uuid:user-1</user>
        <resource>urn:uuid:12345678-1234-1234-1234-123456789abc</resource>
        <permissions><display/><excerpt/></permissions>
      </licenseToken>
      <metadata>
        <title xmlns="http://purl.org/dc/elements/1.1/">Moby Dick</title>
        <creator xmlns="http://purl.org/dc/elements/1.1/">Herman Melville</creator>
      </metadata>
    </resourceItemInfo>
  </fulfillmentResult>
</envelope>`

func TestParseFulfillment(t *testing.T) {
	got, err := ParseFulfillment([]byte(sampleReply))
	if err != nil {
		t.Fatalf("ParseFulfillment: %v", err)
	}
	if !strings.HasPrefix(got.DownloadURL, "https://cdn.example.com/books/") {
		t.Fatalf("download URL = %q", got.DownloadURL)
	}
	if got.Title != "Moby Dick" {
		t.Fatalf("title = %q, want Moby Dick", got.Title)
	}
	if !strings.Contains(string(got.LicenseToken), "urn:uuid:12345678-1234-1234-1234-123456789abc") {
		t.Fatalf("license token missing resource: %s", got.LicenseToken)
	}
}

func TestParseFulfillmentMissingTitleFallsBack(t *testing.T) {
	reply := `<envelope xmlns="http://ns.adobe.com/adept">
  <fulfillmentResult>
    <resourceItemInfo>
      <src>https://cdn.example.com/book.epub</src>
      <licenseToken><resource>urn:res</resource></licenseToken>
    </resourceItemInfo>
  </fulfillmentResult>
</envelope>`
	got, err := ParseFulfillment([]byte(reply))
	if err != nil {
		t.Fatalf("ParseFulfillment: %v", err)
	}
	if got.Title != FallbackTitle {
		t.Fatalf("title = %q, want fallback %q", got.Title, FallbackTitle)
	}
}

func TestParseFulfillmentHardFailures(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{
			name: "missing src",
			reply: `<envelope xmlns="http://ns.adobe.com/adept">
  <fulfillmentResult><resourceItemInfo>
    <licenseToken><resource>urn:res</resource></licenseToken>
  </resourceItemInfo></fulfillmentResult>
</envelope>`,
		},
		{
			name: "missing license token",
			reply: `<envelope xmlns="http://ns.adobe.com/adept">
  <fulfillmentResult><resourceItemInfo>
    <src>https://cdn.example.com/book.epub</src>
  </resourceItemInfo></fulfillmentResult>
</envelope>`,
		},
		{
			name:  "not xml",
			reply: "502 Bad Gateway",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFulfillment([]byte(tt.reply))
			if err == nil {
				t.Fatal("expected parse failure")
			}
			if !errors.Is(err, services.ErrParse) {
				t.Fatalf("error not classified as parse failure: %v", err)
			}
		})
	}
}

func TestParseFulfillmentToleratesUnknownSiblings(t *testing.T) {
	reply := `<envelope xmlns="http://ns.adobe.com/adept">
  <futureExtension>ignored</futureExtension>
  <fulfillmentResult>
    <newSibling attr="x"/>
    <resourceItemInfo>
      <somethingElse>skip me</somethingElse>
      <src>https://cdn.example.com/book.epub</src>
      <licenseToken><resource>urn:res</resource></licenseToken>
      <anotherAddition><nested/></anotherAddition>
    </resourceItemInfo>
  </fulfillmentResult>
</envelope>`
	got, err := ParseFulfillment([]byte(reply))
	if err != nil {
		t.Fatalf("ParseFulfillment with unknown siblings: %v", err)
	}
	if got.DownloadURL != "https://cdn.example.com/book.epub" {
		t.Fatalf("download URL = %q", got.DownloadURL)
	}
}

func TestServerError(t *testing.T) {
	payload, isErr := ServerError([]byte(`<error xmlns="http://ns.adobe.com/adept" data="E_AUTH_FAILED http://example.com 401"/>`))
	if !isErr {
		t.Fatal("expected error document to be recognized")
	}
	if payload != "E_AUTH_FAILED http://example.com 401" {
		t.Fatalf("payload = %q", payload)
	}

	if _, isErr := ServerError([]byte(sampleReply)); isErr {
		t.Fatal("ordinary reply misclassified as server error")
	}
	if _, isErr := ServerError(nil); isErr {
		t.Fatal("empty reply misclassified as server error")
	}
}
