package core

import "time"

// ElementHandle is an opaque, comparable token issued by a Backend for one
// node. The core never looks inside it, it only hands it back.
type ElementHandle interface{}

// Cookie is a cookie visible to the current document.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain,omitempty"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HTTPOnly bool      `json:"httpOnly,omitempty"`
}

// Document gives read-only access to the current document.
type Document interface {
	// DocumentRoot returns the handles that stand for the whole document in
	// the current frame scope. They can be passed to the search methods.
	DocumentRoot() ([]ElementHandle, error)
	DocumentURL() (string, error)
	DocumentTitle() (string, error)
	FetchCookies() ([]Cookie, error)
}

// Navigator changes the current document. NavigateForward and NavigateBack
// perform exactly steps single-step navigations; 0 is a no-op.
type Navigator interface {
	NavigateTo(url string) error
	NavigateForward(steps int) error
	NavigateBack(steps int) error
	RefreshDocument() error
}

// Searcher finds elements under el in document order. el may be a document
// root handle, in which case the whole document is searched. No match is an
// empty result, not an error.
type Searcher interface {
	SearchByCSS(el ElementHandle, selector string) ([]ElementHandle, error)
	SearchByXPath(el ElementHandle, selector string) ([]ElementHandle, error)
}

// Extractor reads element state. ExtractElementHTML on a document root
// handle returns the whole serialized document.
type Extractor interface {
	ExtractElementTag(el ElementHandle) (string, error)
	ExtractElementText(el ElementHandle) (string, error)
	ExtractElementHTML(el ElementHandle) (string, error)
	ExtractElementAttribute(el ElementHandle, name string) (value string, ok bool, err error)
}

// Mutator changes element state. Both methods fail with an
// *InteractionError when the element cannot be interacted with.
type Mutator interface {
	SetElementText(el ElementHandle, value string) error
	ClickOnElement(el ElementHandle) error
}

// FrameSwitcher moves the backend's frame scope. SwitchToParentFrame fails
// with a *FrameNavigationError at the top frame.
type FrameSwitcher interface {
	SwitchToFrame(el ElementHandle) error
	SwitchToTopFrame() error
	SwitchToParentFrame() error
}

// Checker holds the side-effect free predicates used by wait conditions. An
// empty input means "not present".
type Checker interface {
	CheckPresent(els []ElementHandle) (bool, error)
	CheckNotPresent(els []ElementHandle) (bool, error)
	CheckVisible(els []ElementHandle) (bool, error)
	CheckNotVisible(els []ElementHandle) (bool, error)
	CheckEnabled(els []ElementHandle) (bool, error)
}

// Backend is the full capability set a backend must provide. Operations a
// backend cannot support fail with a *CapabilityNotSupportedError.
type Backend interface {
	Document
	Navigator
	Searcher
	Extractor
	Mutator
	FrameSwitcher
	Checker
}
