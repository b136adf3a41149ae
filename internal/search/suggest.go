package search

import (
	"strings"
	"unicode/utf16"

	json "github.com/goccy/go-json"

	"discovery-workers/internal/index"
	"discovery-workers/internal/models"
)

func typeContexts(t models.DocumentType) []string {
	if t != "" {
		return []string{string(t)}
	}
	return index.AllTypeContexts()
}

// completionQuery asks the completion suggester for titles starting with
// the prefix, restricted by type context.
func completionQuery(req models.AutocompleteRequest) map[string]interface{} {
	return map[string]interface{}{
		"size":    0,
		"_source": []string{"id", "type", "title"},
		"suggest": map[string]interface{}{
			string(models.SuggestionCompletion): map[string]interface{}{
				"prefix": req.Prefix,
				"completion": map[string]interface{}{
					"field":           index.FieldTitleSuggest,
					"size":            req.Limit,
					"skip_duplicates": true,
					"contexts": map[string]interface{}{
						index.SuggestContextType: typeContexts(req.Type),
					},
				},
			},
		},
	}
}

// correctionQuery asks the term suggester for close spellings of each
// token of the prefix.
func correctionQuery(req models.AutocompleteRequest) map[string]interface{} {
	return map[string]interface{}{
		"size": 0,
		"suggest": map[string]interface{}{
			string(models.SuggestionCorrection): map[string]interface{}{
				"text": req.Prefix,
				"term": map[string]interface{}{
					"field":           "title",
					"size":            req.Limit,
					"suggest_mode":    "popular",
					"max_edits":       2,
					"prefix_length":   1,
					"min_word_length": 3,
				},
			},
		},
	}
}

// phraseQuery completes the last word of the prefix against whole titles
// and highlights the matched part. Titles sharing word n-grams with the
// prefix, matched on the shingle field, rank higher.
func phraseQuery(req models.AutocompleteRequest) map[string]interface{} {
	boolQuery := map[string]interface{}{
		"must": map[string]interface{}{
			"match_phrase_prefix": map[string]interface{}{
				"title": map[string]interface{}{"query": req.Prefix, "max_expansions": 50},
			},
		},
		"should": []interface{}{
			map[string]interface{}{
				"match_bool_prefix": map[string]interface{}{
					index.FieldTitleShingles: map[string]interface{}{"query": req.Prefix},
				},
			},
		},
	}
	if req.Type != "" {
		boolQuery["filter"] = []interface{}{
			map[string]interface{}{"term": map[string]interface{}{"type": req.Type}},
		}
	}
	return map[string]interface{}{
		"size":    req.Limit,
		"_source": []string{"id", "type", "title"},
		"query":   map[string]interface{}{"bool": boolQuery},
		"highlight": map[string]interface{}{
			"pre_tags":  []string{"<em>"},
			"post_tags": []string{"</em>"},
			"fields":    map[string]interface{}{"title": map[string]interface{}{}},
		},
	}
}

type titleSource struct {
	ID    string              `json:"id"`
	Type  models.DocumentType `json:"type"`
	Title string              `json:"title"`
}

func completionSuggestions(res *index.QueryResult) []models.Suggestion {
	var out []models.Suggestion
	for _, entry := range res.Suggest[string(models.SuggestionCompletion)] {
		for _, opt := range entry.Options {
			meta := map[string]interface{}{"id": opt.ID}
			var src titleSource
			if len(opt.Source) > 0 && json.Unmarshal(opt.Source, &src) == nil && src.Type != "" {
				meta["type"] = src.Type
			}
			out = append(out, models.Suggestion{
				Text:       opt.Text,
				SourceType: models.SuggestionCompletion,
				Score:      finite(opt.Rank()),
				Metadata:   meta,
			})
		}
	}
	return out
}

// correctionSuggestions splices each corrected token back into the prefix.
// Offsets and lengths reported by the engine count UTF-16 code units.
func correctionSuggestions(prefix string, res *index.QueryResult) []models.Suggestion {
	units := utf16.Encode([]rune(prefix))
	var out []models.Suggestion
	for _, entry := range res.Suggest[string(models.SuggestionCorrection)] {
		if entry.Offset < 0 || entry.Length < 0 || entry.Offset+entry.Length > len(units) {
			continue
		}
		head := string(utf16.Decode(units[:entry.Offset]))
		tail := string(utf16.Decode(units[entry.Offset+entry.Length:]))
		for _, opt := range entry.Options {
			text := head + opt.Text + tail
			out = append(out, models.Suggestion{
				Text:       text,
				SourceType: models.SuggestionCorrection,
				Score:      finite(opt.Score),
				Metadata:   map[string]interface{}{"original": entry.Text, "corrected": opt.Text, "freq": opt.Freq},
			})
		}
	}
	return out
}

func phraseSuggestions(res *index.QueryResult) []models.Suggestion {
	var out []models.Suggestion
	for _, hit := range res.Hits {
		var src titleSource
		if err := hit.Decode(&src); err != nil || strings.TrimSpace(src.Title) == "" {
			continue
		}
		meta := map[string]interface{}{"id": hit.ID, "type": src.Type}
		if hl := hit.Highlight["title"]; len(hl) > 0 {
			meta["highlight"] = hl[0]
		}
		out = append(out, models.Suggestion{
			Text:       src.Title,
			SourceType: models.SuggestionPhrase,
			Score:      finite(hit.Score),
			Metadata:   meta,
		})
	}
	return out
}
