package flatopc

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
)

// packageNS is the Microsoft flat-package XML namespace qualifying the
// part elements and their attributes.
const packageNS = "http://schemas.microsoft.com/office/2006/xmlPackage"

// xmlDeclaration is the declaration emitted on every decoded XML part.
const xmlDeclaration = `version="1.0" encoding="UTF-8" standalone="yes"`

var (
	ErrMissingName        = errors.New("flatopc: part is missing its name attribute")
	ErrMissingContentType = errors.New("flatopc: part is missing its contentType attribute")
	ErrMissingPayload     = errors.New("flatopc: part has no payload element")
)

// Part is one file of the package: its absolute URI inside the package,
// its declared content type, and the raw bytes to store at that URI.
type Part struct {
	URI         string
	ContentType string
	Data        []byte
}

// Scanner iterates the parts of a flat-package document in document order.
// It is forward-only: each part is decoded once, the sequence cannot be
// restarted, and a Scanner must not be shared across goroutines.
type Scanner struct {
	parts []*etree.Element
	index int
	part  Part
	err   error
}

// NewScanner parses a flat-package source and prepares a scan over its
// parts. If source names an existing file its contents are read from disk;
// otherwise source itself is taken as the XML document text.
func NewScanner(source string) (*Scanner, error) {
	content, err := resolveSource(source)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("flatopc: failed to parse flat package: %w", err)
	}

	return &Scanner{parts: collectParts(doc.Root(), nil)}, nil
}

// Scan advances to the next part, decoding its payload. It returns false
// when the sequence is exhausted or a part fails to decode; Err tells the
// two apart.
func (s *Scanner) Scan() bool {
	if s.err != nil || s.index >= len(s.parts) {
		return false
	}

	part, err := decodePart(s.parts[s.index])
	s.index++
	if err != nil {
		s.err = err
		return false
	}
	s.part = part
	return true
}

// Part returns the part decoded by the last successful call to Scan.
func (s *Scanner) Part() Part {
	return s.part
}

// Err returns the first error encountered while decoding parts, if any.
func (s *Scanner) Err() error {
	return s.err
}

// resolveSource reads the source from disk when it names an existing file
// and otherwise treats it as literal XML text.
func resolveSource(source string) ([]byte, error) {
	if _, err := os.Stat(source); err == nil {
		content, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("flatopc: failed to read %s: %w", source, err)
		}
		return content, nil
	}
	return []byte(source), nil
}

// collectParts gathers every part element in the flat-package namespace,
// in document order.
func collectParts(el *etree.Element, out []*etree.Element) []*etree.Element {
	if el == nil {
		return out
	}
	if el.Tag == "part" && el.NamespaceURI() == packageNS {
		out = append(out, el)
	}
	for _, child := range el.ChildElements() {
		out = collectParts(child, out)
	}
	return out
}

// decodePart extracts one part's URI, content type and payload bytes.
//
// The part element wraps its payload in a single child element (xmlData or
// binaryData). A content type with the suffix "xml" marks an XML payload:
// the wrapper's child element is serialized as a standalone document. Any
// other content type marks a base64 payload held in the wrapper's text.
func decodePart(el *etree.Element) (Part, error) {
	uri, ok := packageAttr(el, "name")
	if !ok {
		return Part{}, ErrMissingName
	}
	contentType, ok := packageAttr(el, "contentType")
	if !ok {
		return Part{}, fmt.Errorf("%w (part %q)", ErrMissingContentType, uri)
	}

	children := el.ChildElements()
	if len(children) == 0 {
		return Part{}, fmt.Errorf("%w (part %q)", ErrMissingPayload, uri)
	}
	wrapper := children[0]

	var data []byte
	if strings.HasSuffix(contentType, "xml") {
		payload := wrapper.ChildElements()
		if len(payload) == 0 {
			return Part{}, fmt.Errorf("%w (part %q)", ErrMissingPayload, uri)
		}
		serialized, err := serializeSubtree(payload[0])
		if err != nil {
			return Part{}, fmt.Errorf("flatopc: failed to serialize payload of part %q: %w", uri, err)
		}
		data = serialized
	} else {
		text, ok := binaryText(wrapper)
		if !ok {
			return Part{}, fmt.Errorf("%w (part %q)", ErrMissingPayload, uri)
		}
		decoded, err := base64.StdEncoding.DecodeString(stripLineBreaks(text))
		if err != nil {
			return Part{}, fmt.Errorf("flatopc: failed to decode base64 payload of part %q: %w", uri, err)
		}
		data = decoded
	}

	return Part{URI: uri, ContentType: contentType, Data: data}, nil
}

// packageAttr looks up an attribute of el qualified by the flat-package
// namespace. Unqualified attributes of the same name do not match.
func packageAttr(el *etree.Element, key string) (string, bool) {
	for _, a := range el.Attr {
		if a.Key == key && a.NamespaceURI() == packageNS {
			return a.Value, true
		}
	}
	return "", false
}

// serializeSubtree writes el and its descendants as a standalone compact
// UTF-8 document: XML declaration, no inserted whitespace, nothing after
// the root element. Namespace declarations inherited from ancestors are
// redeclared on the root so the document stays self-contained.
func serializeSubtree(el *etree.Element) ([]byte, error) {
	root := el.Copy()
	for p := el.Parent(); p != nil; p = p.Parent() {
		for _, a := range p.Attr {
			if !isNamespaceDecl(a) {
				continue
			}
			key := a.Key
			if a.Space != "" {
				key = a.Space + ":" + a.Key
			}
			if root.SelectAttr(key) == nil {
				root.CreateAttr(key, a.Value)
			}
		}
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", xmlDeclaration)
	doc.SetRoot(root)
	return doc.WriteToBytes()
}

// binaryText returns the character data opening the wrapper's content.
// A wrapper holding no character data at all (empty, or with an element
// in first position) has no base64 payload to decode.
func binaryText(wrapper *etree.Element) (string, bool) {
	if len(wrapper.Child) == 0 {
		return "", false
	}
	if _, ok := wrapper.Child[0].(*etree.CharData); !ok {
		return "", false
	}
	return wrapper.Text(), true
}

func isNamespaceDecl(a etree.Attr) bool {
	return a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns")
}

// stripLineBreaks removes the line breaks a producer may insert into
// base64 text. Only "\n" and "\r" are removed; any other whitespace is
// left in place and fails the decode.
func stripLineBreaks(text string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, text)
}
