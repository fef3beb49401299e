package models

import "strings"

// ElementType is a set of request and resource categories.  A single flag
// classifies a request, a combination describes the types a filter applies to.
type ElementType uint32

// Element type flags
const (
	ElementScript ElementType = 1 << iota
	ElementImage
	ElementStylesheet
	ElementObject
	ElementXMLHTTPRequest
	ElementObjectSubrequest
	ElementSubdocument
	ElementPing
	ElementWebSocket
	ElementWebRTC
	ElementDocument
	ElementElemHide
	ElementGenericHide
	ElementGenericBlock
	ElementPopUp
	ElementThirdParty
	ElementCollapse
	ElementInlineScript
	ElementCSP
	ElementOther

	ElementNone ElementType = 0
)

// RequestTypes are the flags a network request can be classified as.
const RequestTypes = ElementScript | ElementImage | ElementStylesheet | ElementObject |
	ElementXMLHTTPRequest | ElementObjectSubrequest | ElementSubdocument | ElementPing |
	ElementWebSocket | ElementWebRTC | ElementDocument | ElementPopUp | ElementInlineScript |
	ElementOther

// PageExceptionTypes are the flags an exception filter uses to switch off
// filtering for a whole page rather than for a single request.
const PageExceptionTypes = ElementElemHide | ElementGenericHide | ElementGenericBlock

// Has reports whether every flag of t is set in e.
func (e ElementType) Has(t ElementType) bool {
	return t != 0 && e&t == t
}

// Any reports whether e and t share at least one flag.
func (e ElementType) Any(t ElementType) bool {
	return e&t != 0
}

// Without returns e with the flags of t cleared.
func (e ElementType) Without(t ElementType) ElementType {
	return e &^ t
}

var elementTypeNames = []struct {
	t    ElementType
	name string
}{
	{ElementScript, "script"},
	{ElementImage, "image"},
	{ElementStylesheet, "stylesheet"},
	{ElementObject, "object"},
	{ElementXMLHTTPRequest, "xmlhttprequest"},
	{ElementObjectSubrequest, "object-subrequest"},
	{ElementSubdocument, "subdocument"},
	{ElementPing, "ping"},
	{ElementWebSocket, "websocket"},
	{ElementWebRTC, "webrtc"},
	{ElementDocument, "document"},
	{ElementElemHide, "elemhide"},
	{ElementGenericHide, "generichide"},
	{ElementGenericBlock, "genericblock"},
	{ElementPopUp, "popup"},
	{ElementThirdParty, "third-party"},
	{ElementCollapse, "collapse"},
	{ElementInlineScript, "inline-script"},
	{ElementCSP, "csp"},
	{ElementOther, "other"},
}

// String implements the fmt.Stringer interface for ElementType.
func (e ElementType) String() string {
	if e == ElementNone {
		return "none"
	}

	var names []string
	for _, n := range elementTypeNames {
		if e.Has(n.t) {
			names = append(names, n.name)
		}
	}

	return strings.Join(names, "|")
}

// ParseElementType returns the single element type with the given option
// name, as used in filter options and on the command line.
func ParseElementType(name string) (ElementType, bool) {
	for _, n := range elementTypeNames {
		if n.name == name {
			return n.t, true
		}
	}

	return ElementNone, false
}
