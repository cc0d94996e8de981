package core

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrBlankTitle indicates an add with an empty or whitespace-only title.
	ErrBlankTitle = errors.New("blank title")
	// ErrInvalidNode indicates the referenced node does not exist.
	ErrInvalidNode = errors.New("invalid node")
	// ErrInvalidParent indicates a parent that does not exist.
	ErrInvalidParent = errors.New("invalid parent")
	// ErrInvalidIndex indicates a provided index is out of range.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrInvalidColor indicates a color that is neither named nor #RRGGBB.
	ErrInvalidColor = errors.New("invalid color")
	// ErrInvalidStyle indicates an unknown text style.
	ErrInvalidStyle = errors.New("invalid style")
	// ErrInvalidZoom indicates a zoom that is not a non-negative number.
	ErrInvalidZoom = errors.New("invalid zoom")
	// ErrInvalidPage indicates a page number below 1.
	ErrInvalidPage = errors.New("invalid page")
)

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidateOps reports the first error Apply would return for ops, without
// touching tree.
func ValidateOps(tree Tree, ops []Op) error {
	_, err := Apply(tree, ops...)
	return err
}

// ValidateColor accepts the named colors, #RRGGBB, and the empty color.
func ValidateColor(c Color) error {
	if c == ColorNone || hexColorPattern.MatchString(string(c)) {
		return nil
	}
	for _, named := range NamedColors {
		if c == named {
			return nil
		}
	}
	return ErrInvalidColor
}

// ValidateStyle accepts the known styles and the empty style.
func ValidateStyle(s Style) error {
	switch s {
	case StyleNormal, StyleBold, StyleItalic, StyleBoldItalic:
		return nil
	}
	return ErrInvalidStyle
}

// ValidateZoom accepts the empty zoom and non-negative decimal percentages.
func ValidateZoom(z Zoom) error {
	if z == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(z)), 64)
	if err != nil || v < 0 {
		return ErrInvalidZoom
	}
	return nil
}

func validateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", ErrBlankTitle
	}
	return trimmed, nil
}

func validatePage(page int) error {
	if page < 1 {
		return ErrInvalidPage
	}
	return nil
}

func validateIndex(idx, length int) error {
	if idx < 0 || idx >= length {
		return ErrInvalidIndex
	}
	return nil
}
