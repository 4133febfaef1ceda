package core

// BaseBackend can be embedded by backends: every operation it provides fails
// with a *CapabilityNotSupportedError naming the backend and the operation,
// except CheckPresent and CheckNotPresent which only look at the number of
// elements.
type BaseBackend struct {
	Name string
}

func (b BaseBackend) unsupported(op string) error {
	return &CapabilityNotSupportedError{Backend: b.Name, Operation: op}
}

func (b BaseBackend) DocumentRoot() ([]ElementHandle, error) {
	return nil, b.unsupported("DocumentRoot")
}

func (b BaseBackend) DocumentURL() (string, error) {
	return "", b.unsupported("DocumentURL")
}

func (b BaseBackend) DocumentTitle() (string, error) {
	return "", b.unsupported("DocumentTitle")
}

func (b BaseBackend) FetchCookies() ([]Cookie, error) {
	return nil, b.unsupported("FetchCookies")
}

func (b BaseBackend) NavigateTo(string) error {
	return b.unsupported("NavigateTo")
}

func (b BaseBackend) NavigateForward(int) error {
	return b.unsupported("NavigateForward")
}

func (b BaseBackend) NavigateBack(int) error {
	return b.unsupported("NavigateBack")
}

func (b BaseBackend) RefreshDocument() error {
	return b.unsupported("RefreshDocument")
}

func (b BaseBackend) SearchByCSS(ElementHandle, string) ([]ElementHandle, error) {
	return nil, b.unsupported("SearchByCSS")
}

func (b BaseBackend) SearchByXPath(ElementHandle, string) ([]ElementHandle, error) {
	return nil, b.unsupported("SearchByXPath")
}

func (b BaseBackend) ExtractElementTag(ElementHandle) (string, error) {
	return "", b.unsupported("ExtractElementTag")
}

func (b BaseBackend) ExtractElementText(ElementHandle) (string, error) {
	return "", b.unsupported("ExtractElementText")
}

func (b BaseBackend) ExtractElementHTML(ElementHandle) (string, error) {
	return "", b.unsupported("ExtractElementHTML")
}

func (b BaseBackend) ExtractElementAttribute(ElementHandle, string) (string, bool, error) {
	return "", false, b.unsupported("ExtractElementAttribute")
}

func (b BaseBackend) SetElementText(ElementHandle, string) error {
	return b.unsupported("SetElementText")
}

func (b BaseBackend) ClickOnElement(ElementHandle) error {
	return b.unsupported("ClickOnElement")
}

func (b BaseBackend) SwitchToFrame(ElementHandle) error {
	return b.unsupported("SwitchToFrame")
}

func (b BaseBackend) SwitchToTopFrame() error {
	return b.unsupported("SwitchToTopFrame")
}

func (b BaseBackend) SwitchToParentFrame() error {
	return b.unsupported("SwitchToParentFrame")
}

func (b BaseBackend) CheckPresent(els []ElementHandle) (bool, error) {
	return len(els) > 0, nil
}

func (b BaseBackend) CheckNotPresent(els []ElementHandle) (bool, error) {
	return len(els) == 0, nil
}

func (b BaseBackend) CheckVisible([]ElementHandle) (bool, error) {
	return false, b.unsupported("CheckVisible")
}

func (b BaseBackend) CheckNotVisible([]ElementHandle) (bool, error) {
	return false, b.unsupported("CheckNotVisible")
}

func (b BaseBackend) CheckEnabled([]ElementHandle) (bool, error) {
	return false, b.unsupported("CheckEnabled")
}

var _ Backend = BaseBackend{}

// Steps runs step exactly n times, stopping at the first error. Negative
// counts are rejected.
func Steps(op string, n int, step func() error) error {
	if n < 0 {
		return &InvalidArgumentError{Operation: op, Reason: "step count must not be negative"}
	}
	for i := 0; i < n; i++ {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
