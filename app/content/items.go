package content

import (
	"encoding/json"
	"fmt"
)

type ItemType string

const (
	ItemFeatured  ItemType = "featured"
	ItemStandard  ItemType = "standard"
	ItemCardTitle ItemType = "CARD_TITLE"
	ItemMore      ItemType = "MORE_ITEM"
	ItemAd        ItemType = "AD_ITEM"
)

// Item is one entry of an assembled landing sequence: *Article, SectionTitle, MoreLink or AdSlot.
type Item interface {
	ItemType() ItemType
}

func (a *Article) ItemType() ItemType { return a.Type }

// SectionTitle opens a titled section of a landing page.
type SectionTitle struct {
	Title     string
	Permalink string
}

func (SectionTitle) ItemType() ItemType { return ItemCardTitle }

// MoreLink points the client at the full list behind a section.
type MoreLink struct {
	Title     string
	Permalink string
}

func (MoreLink) ItemType() ItemType { return ItemMore }

// AdSlot marks an ad placement.
type AdSlot struct{}

func (AdSlot) ItemType() ItemType { return ItemAd }

type markerJSON struct {
	Title     string   `json:"title,omitempty"`
	Permalink string   `json:"permalink,omitempty"`
	Type      ItemType `json:"type"`
}

// Items is a landing sequence with the wire shape the mobile client expects:
// a flat JSON array where markers are objects carrying only title/permalink/type.
type Items []Item

func (items Items) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(items))
	for i, item := range items {
		switch v := item.(type) {
		case *Article:
			out = append(out, v)
		case SectionTitle:
			out = append(out, markerJSON{Title: v.Title, Permalink: v.Permalink, Type: ItemCardTitle})
		case MoreLink:
			out = append(out, markerJSON{Title: v.Title, Permalink: v.Permalink, Type: ItemMore})
		case AdSlot:
			out = append(out, markerJSON{Type: ItemAd})
		default:
			return nil, fmt.Errorf("unsupported item %T at index %d", item, i)
		}
	}
	return json.Marshal(out)
}

func (items *Items) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	decoded := make(Items, 0, len(raw))
	for i, entry := range raw {
		var probe markerJSON
		if err := json.Unmarshal(entry, &probe); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}

		switch probe.Type {
		case ItemCardTitle:
			decoded = append(decoded, SectionTitle{Title: probe.Title, Permalink: probe.Permalink})
		case ItemMore:
			decoded = append(decoded, MoreLink{Title: probe.Title, Permalink: probe.Permalink})
		case ItemAd:
			decoded = append(decoded, AdSlot{})
		default:
			var article Article
			if err := json.Unmarshal(entry, &article); err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			decoded = append(decoded, &article)
		}
	}

	*items = decoded
	return nil
}
