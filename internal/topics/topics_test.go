package topics

import "testing"

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		topic Topic
		ok    bool
	}{
		{"Meri shaadi kab hogi?", TopicMarriage, true},
		{"job change karna chahiye kya", TopicCareer, true},
		{"health theek nahi chal rahi", TopicHealth, true},
		{"paisa kab aayega", TopicFinance, true},
		{"exam clear hoga kya", TopicEducation, true},
		{"videsh jaane ka yog hai?", TopicTravel, true},
		{"ghar kharidna chahiye?", TopicProperty, true},
		{"santan prapti ke baare mein bataiye", TopicChildren, true},
		{"namaste", "", false},
	}

	for _, tt := range tests {
		topic, ok := Detect(tt.in)
		if ok != tt.ok || topic != tt.topic {
			t.Errorf("Detect(%q) = (%q, %v), want (%q, %v)", tt.in, topic, ok, tt.topic, tt.ok)
		}
	}
}

// Marriage outranks career when both keyword groups match.
func TestDetectPriorityOrder(t *testing.T) {
	t.Parallel()

	topic, ok := Detect("shaadi ke baad job milegi kya?")
	if !ok || topic != TopicMarriage {
		t.Fatalf("got (%q, %v), want (%q, true)", topic, ok, TopicMarriage)
	}
}

func TestSuggestPicksFromMatchedPool(t *testing.T) {
	t.Parallel()

	for i := 0; i < 20; i++ {
		prompt, topic := Suggest("career ke baare mein bataiye", "")
		if topic != TopicCareer {
			t.Fatalf("topic = %q, want %q", topic, TopicCareer)
		}
		found := false
		for _, p := range pools[TopicCareer] {
			if p == prompt {
				found = true
			}
		}
		if !found {
			t.Fatalf("prompt %q not in career pool", prompt)
		}
	}
}

func TestSuggestFallsBackToLastTopic(t *testing.T) {
	t.Parallel()

	_, topic := Suggest("aur bataiye", TopicHealth)
	if topic != TopicHealth {
		t.Fatalf("topic = %q, want last topic %q", topic, TopicHealth)
	}
}

func TestSuggestFallsBackToGeneral(t *testing.T) {
	t.Parallel()

	prompt, topic := Suggest("aur bataiye", "")
	if topic != TopicGeneral {
		t.Fatalf("topic = %q, want %q", topic, TopicGeneral)
	}
	if prompt == "" {
		t.Fatal("expected a non-empty prompt")
	}
}
