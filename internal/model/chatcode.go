package model

import (
	"encoding/base64"
	"strings"
)

// chatLinkItem is the header byte of an item chat link.
const chatLinkItem = 0x02

// ChatCode returns the in-game chat link for a single unit of an item, e.g. [&AgGqtgAA].
func ChatCode(itemID int) string {
	b := []byte{
		chatLinkItem,
		1, // quantity
		byte(itemID),
		byte(itemID >> 8),
		byte(itemID >> 16),
		0, // no upgrades or skin
	}
	return "[&" + base64.StdEncoding.EncodeToString(b) + "]"
}

// SearchItemsByName returns items whose name contains every term, case-insensitively.
func SearchItemsByName(items []Item, terms ...string) []Item {
	var found []Item
	for _, it := range items {
		name := strings.ToLower(it.Name)
		match := true
		for _, term := range terms {
			if !strings.Contains(name, strings.ToLower(term)) {
				match = false
				break
			}
		}
		if match {
			found = append(found, it)
		}
	}
	return found
}
