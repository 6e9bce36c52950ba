// Package adept implements the ADEPT rights-management exchange: parsing
// license request artifacts (.acsm files), submitting them to the
// operator's fulfillment endpoint, extracting the download location and
// license token from the reply, and building the rights document a
// decryptor consumes.
//
// The wire documents are namespaced XML. The parser walks fixed element
// paths and ignores unknown siblings, so schema additions on the server
// side do not break fulfillment.
package adept
