package normalize

import (
	"testing"

	"quizdeck/internal/domain"
)

func TestUsersFromCognitoAttributes(t *testing.T) {
	raw := []byte(`{"Users":[{"Attributes":[{"Name":"email","Value":"a@b.com"}]}]}`)

	users := Users(raw)
	if len(users) != 1 {
		t.Fatalf("expected one record, got %d", len(users))
	}
	u := users[0]
	if u.Email != "a@b.com" {
		t.Fatalf("expected email a@b.com, got %q", u.Email)
	}
	if u.Name != "a" {
		t.Fatalf("expected name derived from email local part, got %q", u.Name)
	}
	if u.Group != "User" {
		t.Fatalf("expected default group User, got %q", u.Group)
	}
}

func TestUsersPrecedence(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want domain.UserRecord
	}{
		{
			name: "attribute name beats flat fields",
			raw:  `{"users":[{"name":"Flat","Attributes":[{"Name":"name","Value":"Attr Name"}]}]}`,
			want: domain.UserRecord{Name: "Attr Name", Group: "User"},
		},
		{
			name: "given and family joined",
			raw:  `[{"Attributes":[{"Name":"given_name","Value":"Ada"},{"Name":"family_name","Value":"Lovelace"}]}]`,
			want: domain.UserRecord{Name: "Ada Lovelace", Group: "User"},
		},
		{
			name: "given name alone, no stray space",
			raw:  `[{"Attributes":[{"Name":"given_name","Value":"Ada"}]}]`,
			want: domain.UserRecord{Name: "Ada", Group: "User"},
		},
		{
			name: "preferred username before nickname",
			raw:  `[{"Attributes":[{"Name":"nickname","Value":"nick"},{"Name":"preferred_username","Value":"pref"}]}]`,
			want: domain.UserRecord{Name: "pref", Group: "User"},
		},
		{
			name: "username passthrough and fallback name",
			raw:  `[{"Username":"u-123"}]`,
			want: domain.UserRecord{Name: "u-123", Username: "u-123", Group: "User"},
		},
		{
			name: "groups list wins over custom group attribute",
			raw:  `[{"Groups":["Admin"],"Attributes":[{"Name":"custom:group","Value":"Staff"}]}]`,
			want: domain.UserRecord{Name: "User", Group: "Admin"},
		},
		{
			name: "custom group attribute when list empty",
			raw:  `[{"groups":[],"Attributes":[{"Name":"custom:group","Value":"Staff"}]}]`,
			want: domain.UserRecord{Name: "User", Group: "Staff"},
		},
		{
			name: "everything missing",
			raw:  `[{}]`,
			want: domain.UserRecord{Name: "User", Group: "User"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			users := Users([]byte(tc.raw))
			if len(users) != 1 {
				t.Fatalf("expected one record, got %d", len(users))
			}
			u := users[0]
			if u.Name != tc.want.Name || u.Group != tc.want.Group || u.Username != tc.want.Username {
				t.Fatalf("got %+v, want %+v", u, tc.want)
			}
		})
	}
}

func TestUsersMalformedInput(t *testing.T) {
	for _, raw := range []string{`null`, `{}`, `42`, `"nope"`, `{"users":"not-a-list"}`} {
		if got := Users([]byte(raw)); len(got) != 0 {
			t.Fatalf("input %s: expected empty result, got %v", raw, got)
		}
	}
}

func TestScoresSynonymsAndDefaults(t *testing.T) {
	raw := []byte(`{"scores":[
		{"result_id":"res-1","quiz_id":"quiz-1","user_name":"Ada","score":7},
		{"pk":"res-2","sk":"quiz-2","email":"b@c.com","marks":0},
		{}
	]}`)

	scores := Scores(raw)
	if len(scores) != 3 {
		t.Fatalf("expected three records, got %d", len(scores))
	}

	if scores[0].ResponseID != "res-1" || scores[0].UserName != "Ada" {
		t.Fatalf("unexpected first record: %+v", scores[0])
	}
	if !scores[0].Score.Known || scores[0].Score.Value != 7 {
		t.Fatalf("expected score 7, got %+v", scores[0].Score)
	}

	if scores[1].ResponseID != "res-2" || scores[1].QuizID != "quiz-2" {
		t.Fatalf("pk/sk synonyms not resolved: %+v", scores[1])
	}
	if scores[1].UserName != "b@c.com" || scores[1].UserEmail != "b@c.com" {
		t.Fatalf("email fallback not applied: %+v", scores[1])
	}
	if !scores[1].Score.Known || scores[1].Score.Value != 0 {
		t.Fatalf("zero must count as a present score, got %+v", scores[1].Score)
	}

	empty := scores[2]
	if empty.ResponseID != "N/A" || empty.QuizID != "N/A" || empty.UserName != "N/A" {
		t.Fatalf("expected N/A defaults, got %+v", empty)
	}
	if empty.Score.Known {
		t.Fatalf("expected unknown score, got %+v", empty.Score)
	}
	if empty.Score.String() != "N/A" {
		t.Fatalf("unknown score must render N/A, got %q", empty.Score.String())
	}
}

func TestScoresMalformedInput(t *testing.T) {
	for _, raw := range []string{`null`, `{}`, `{"Items":null}`} {
		if got := Scores([]byte(raw)); len(got) != 0 {
			t.Fatalf("input %s: expected empty result, got %v", raw, got)
		}
	}
}

func TestWithQuizTitles(t *testing.T) {
	scores := []domain.ScoreRecord{{QuizID: "quiz-1"}, {QuizID: "quiz-x"}}
	quizzes := []domain.Quiz{{ID: "quiz-1", Title: "Cloud Basics"}}

	out := WithQuizTitles(scores, quizzes)
	if out[0].QuizTitle != "Cloud Basics" {
		t.Fatalf("expected title mapped, got %q", out[0].QuizTitle)
	}
	if out[1].QuizTitle != "quiz-x" {
		t.Fatalf("expected fallback to quiz id, got %q", out[1].QuizTitle)
	}
	if scores[0].QuizTitle != "" {
		t.Fatalf("input slice must not be mutated")
	}
}
