package landing

import "github.com/lysyi3m/landing-comb/app/content"

// Tag marks articles featured or standard in place and returns items.
//
// A section title opens a section; a more link or ad slot closes it. Inside a section the
// first article is featured and the rest standard. Outside a section, an article that has no
// type yet is featured when it opens the page or directly follows a section title.
func Tag(items content.Items) content.Items {
	inSection := false
	count := 0
	var prev content.Item

	for i, item := range items {
		switch v := item.(type) {
		case content.SectionTitle:
			inSection = true
			count = 0
		case content.MoreLink, content.AdSlot:
			inSection = false
		case *content.Article:
			switch {
			case inSection:
				v.Type = content.ItemStandard
				if count == 0 {
					v.Type = content.ItemFeatured
				}
				count++
			case v.Type == "":
				v.Type = content.ItemStandard
				if _, afterTitle := prev.(content.SectionTitle); i == 0 || afterTitle {
					v.Type = content.ItemFeatured
				}
			}
		}
		prev = item
	}

	return items
}
