package core

import (
	"strings"
)

// InputMode is the kind of input a form element accepts.
type InputMode string

// Input modes returned by InputMode.
const (
	InputModeNone     InputMode = "none"
	InputModeText     InputMode = "text"
	InputModeSelect   InputMode = "select"
	InputModeRadio    InputMode = "radio"
	InputModeCheckbox InputMode = "checkbox"
	InputModeButton   InputMode = "button"
	InputModeFile     InputMode = "file"
	InputModeHidden   InputMode = "hidden"
)

// Tag returns the lower-cased tag name of the first element.
func (c *Context) Tag() (string, error) {
	el, err := c.first("Tag")
	if err != nil {
		return "", err
	}
	tag, err := c.backend.ExtractElementTag(el)
	if err != nil {
		return "", c.annotate("Tag", err)
	}
	return strings.ToLower(tag), nil
}

// Text returns the text of the first element.
func (c *Context) Text() (string, error) {
	el, err := c.first("Text")
	if err != nil {
		return "", err
	}
	text, err := c.backend.ExtractElementText(el)
	return text, c.annotate("Text", err)
}

// HTML returns the HTML of every element, concatenated in order. On the root
// context this is the whole document.
func (c *Context) HTML() (string, error) {
	els, err := c.resolve()
	if err != nil {
		return "", err
	}
	if len(els) == 0 {
		return "", &EmptyResultError{Operation: "HTML", Chain: c.Chain()}
	}
	var sb strings.Builder
	for _, el := range els {
		html, err := c.backend.ExtractElementHTML(el)
		if err != nil {
			return "", c.annotate("HTML", err)
		}
		sb.WriteString(html)
	}
	return sb.String(), nil
}

// Attr returns the named attribute of the first element and whether it is
// set. Unlike At, it never fails with an index error.
func (c *Context) Attr(name string) (string, bool, error) {
	el, err := c.first("Attr")
	if err != nil {
		return "", false, err
	}
	v, ok, err := c.backend.ExtractElementAttribute(el, name)
	if err != nil {
		return "", false, c.annotate("Attr "+name, err)
	}
	return v, ok, nil
}

// AttrOr is like Attr but returns def when the attribute is not set.
func (c *Context) AttrOr(name, def string) (string, error) {
	v, ok, err := c.Attr(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return def, nil
	}
	return v, nil
}

// Classes returns the class names of the first element.
func (c *Context) Classes() ([]string, error) {
	v, _, err := c.Attr("class")
	if err != nil {
		return nil, err
	}
	return strings.Fields(v), nil
}

// Value returns the value of the first element and whether it has one.
func (c *Context) Value() (string, bool, error) {
	return c.Attr("value")
}

// IsSelected reports whether the first element is a selected option.
func (c *Context) IsSelected() (bool, error) {
	_, ok, err := c.Attr("selected")
	return ok, err
}

// IsChecked reports whether the first element is checked.
func (c *Context) IsChecked() (bool, error) {
	_, ok, err := c.Attr("checked")
	return ok, err
}

// InputMode returns what kind of input the first element takes.
func (c *Context) InputMode() (InputMode, error) {
	tag, err := c.Tag()
	if err != nil {
		return "", err
	}
	switch tag {
	case "select":
		return InputModeSelect, nil
	case "textarea":
		return InputModeText, nil
	case "button":
		return InputModeButton, nil
	case "input":
	default:
		return InputModeNone, nil
	}

	typ, _, err := c.Attr("type")
	if err != nil {
		return "", err
	}
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "radio":
		return InputModeRadio, nil
	case "checkbox":
		return InputModeCheckbox, nil
	case "button", "submit", "reset", "image":
		return InputModeButton, nil
	case "file":
		return InputModeFile, nil
	case "hidden":
		return InputModeHidden, nil
	default:
		return InputModeText, nil
	}
}

// SetText replaces the text of the first element.
func (c *Context) SetText(value string) error {
	el, err := c.first("SetText")
	if err != nil {
		return err
	}
	c.logger().Debugf("Context:SetText", "chain:%q len:%d", c.Chain(), len(value))
	return c.annotate("SetText", c.backend.SetElementText(el, value))
}

// Click clicks the first element.
func (c *Context) Click() error {
	el, err := c.first("Click")
	if err != nil {
		return err
	}
	c.logger().Debugf("Context:Click", "chain:%q", c.Chain())
	return c.annotate("Click", c.backend.ClickOnElement(el))
}
