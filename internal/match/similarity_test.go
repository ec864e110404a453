package match

import "testing"

func TestSimilarityIdenticalTexts(t *testing.T) {
	if got := Similarity("black sony headphones", "black sony headphones"); got != 1.0 {
		t.Errorf("expected 1.0 for identical texts, got %v", got)
	}
}

func TestSimilarityDisjointTexts(t *testing.T) {
	if got := Similarity("red umbrella", "silver laptop"); got != 0.0 {
		t.Errorf("expected 0.0 for disjoint texts, got %v", got)
	}
}

func TestSimilarityEmptyText(t *testing.T) {
	if got := Similarity("", "black headphones"); got != 0.0 {
		t.Errorf("expected 0.0 against empty text, got %v", got)
	}
	if got := Similarity("the of a", "black headphones"); got != 0.0 {
		t.Errorf("expected 0.0 against stopword-only text, got %v", got)
	}
}

func TestSimilarityPartialOverlap(t *testing.T) {
	// {black, headphones} over {black, sony, headphones, wireless} = 2/4.
	got := Similarity("black sony headphones", "black wireless headphones")
	if got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
}

func TestSimilarityIgnoresCaseAndPunctuation(t *testing.T) {
	a := Similarity("Black Sony headphones!", "black sony headphones")
	if a != 1.0 {
		t.Errorf("expected punctuation and case to be ignored, got %v", a)
	}
}

func TestSimilarityBounds(t *testing.T) {
	texts := []string{
		"", "black", "black sony headphones lost in cafeteria",
		"umbrella", "the of a", "2nd floor library entrance",
	}
	for _, a := range texts {
		for _, b := range texts {
			got := Similarity(a, b)
			if got < 0 || got > 1 {
				t.Errorf("Similarity(%q, %q) = %v out of [0,1]", a, b, got)
			}
		}
	}
}
