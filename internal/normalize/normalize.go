// Package normalize converts the loosely-shaped payloads returned by the
// quiz API's user and score endpoints into canonical records. The backend
// does not commit to one field-naming convention, so each known shape gets
// an explicit parser and every derived field is resolved first-match-wins
// across a fixed candidate list.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"quizdeck/internal/domain"
)

// defaultName is used when neither attributes nor flat fields yield anything.
const defaultName = "User"

// rawAttribute is one entry of a Cognito-style Attributes list.
type rawAttribute struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type attributeList []rawAttribute

func (l attributeList) get(name string) string {
	for _, a := range l {
		if a.Name == name {
			return a.Value
		}
	}
	return ""
}

// rawUser captures every field spelling the backend has been seen to use.
// encoding/json prefers exact tag matches, so the synonym fields do not
// shadow each other.
type rawUser struct {
	Username      string        `json:"Username"`
	Email         string        `json:"email"`
	EmailUpper    string        `json:"Email"`
	UserEmail     string        `json:"user_email"`
	Name          string        `json:"name"`
	Group         string        `json:"group"`
	Groups        []string      `json:"Groups"`
	GroupsLower   []string      `json:"groups"`
	CognitoGroups []string      `json:"cognitoGroups"`
	Attributes    attributeList `json:"Attributes"`
}

// Users normalizes a raw user-listing payload. Malformed input yields an
// empty slice, never an error.
func Users(raw []byte) []domain.UserRecord {
	items := extractList(raw, "users", "Users")
	records := make([]domain.UserRecord, 0, len(items))
	for _, item := range items {
		var u rawUser
		if err := json.Unmarshal(item, &u); err != nil {
			records = append(records, domain.UserRecord{Name: defaultName, Group: defaultName})
			continue
		}
		records = append(records, normalizeUser(u))
	}
	return records
}

func normalizeUser(u rawUser) domain.UserRecord {
	email := firstNonEmpty(
		u.Attributes.get("email"),
		u.Email,
		u.EmailUpper,
		u.UserEmail,
	)

	name := firstNonEmpty(
		u.Attributes.get("name"),
		joinNames(u.Attributes.get("given_name"), u.Attributes.get("family_name")),
		u.Attributes.get("preferred_username"),
		u.Attributes.get("nickname"),
		u.Name,
		u.Username,
		emailLocalPart(email),
		defaultName,
	)

	group := firstNonEmpty(
		firstElement(u.Groups, u.GroupsLower, u.CognitoGroups),
		u.Attributes.get("custom:group"),
		u.Group,
		defaultName,
	)

	return domain.UserRecord{
		Email:    email,
		Name:     name,
		Username: u.Username,
		Group:    group,
	}
}

// rawScore mirrors the score/result record shapes seen from the backend.
// Numeric-ish fields stay raw so that zero survives as a real value.
type rawScore struct {
	ResultID     string          `json:"result_id"`
	ResponseID   string          `json:"response_id"`
	ID           string          `json:"id"`
	ResponseIDCC string          `json:"responseId"`
	PK           string          `json:"pk"`
	PKUpper      string          `json:"PK"`
	QuizID       string          `json:"quiz_id"`
	QuizIDCC     string          `json:"quizId"`
	SK           string          `json:"sk"`
	SKUpper      string          `json:"SK"`
	Title        string          `json:"title"`
	UserName     string          `json:"user_name"`
	Username     string          `json:"username"`
	User         string          `json:"user"`
	Name         string          `json:"name"`
	UserEmail    string          `json:"user_email"`
	Email        string          `json:"email"`
	Score        json.RawMessage `json:"score"`
	Marks        json.RawMessage `json:"marks"`
	Total        json.RawMessage `json:"total"`
	Result       json.RawMessage `json:"result"`
	Answers      json.RawMessage `json:"answers"`
	Response     json.RawMessage `json:"response"`
	Responses    json.RawMessage `json:"responses"`
}

// Scores normalizes a raw score-listing payload. Malformed input yields an
// empty slice, never an error.
func Scores(raw []byte) []domain.ScoreRecord {
	items := extractList(raw, "scores", "results", "Items", "items")
	records := make([]domain.ScoreRecord, 0, len(items))
	for _, item := range items {
		var s rawScore
		if err := json.Unmarshal(item, &s); err != nil {
			records = append(records, domain.ScoreRecord{
				ResponseID: "N/A", QuizID: "N/A", UserName: "N/A",
			})
			continue
		}
		records = append(records, normalizeScore(s))
	}
	return records
}

func normalizeScore(s rawScore) domain.ScoreRecord {
	email := firstNonEmpty(s.UserEmail, s.Email)
	return domain.ScoreRecord{
		ResponseID: firstNonEmpty(s.ResultID, s.ResponseID, s.ID, s.ResponseIDCC, s.PK, s.PKUpper, "N/A"),
		QuizID:     firstNonEmpty(s.QuizID, s.QuizIDCC, s.SK, s.SKUpper, s.Title, "N/A"),
		UserName:   firstNonEmpty(s.UserName, s.Username, s.User, s.Name, s.UserEmail, s.Email, "N/A"),
		UserEmail:  email,
		Score:      firstScore(s.Score, s.Marks, s.Total, s.Result),
		Answers:    firstRaw(s.Answers, s.Response, s.Responses),
	}
}

// WithQuizTitles attaches quiz titles to score records by quiz id, falling
// back to the raw id when the quiz is unknown.
func WithQuizTitles(scores []domain.ScoreRecord, quizzes []domain.Quiz) []domain.ScoreRecord {
	titles := make(map[string]string, len(quizzes))
	for _, q := range quizzes {
		titles[q.ID] = q.Title
	}
	out := make([]domain.ScoreRecord, len(scores))
	for i, s := range scores {
		if title, ok := titles[s.QuizID]; ok && title != "" {
			s.QuizTitle = title
		} else {
			s.QuizTitle = s.QuizID
		}
		out[i] = s
	}
	return out
}

// extractList unwraps the top-level payload: a bare JSON array, or the first
// present list-bearing key. Anything else is an empty list.
func extractList(raw []byte, keys ...string) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err == nil {
		return items
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	for _, key := range keys {
		inner, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(inner, &items); err == nil {
			return items
		}
	}
	return nil
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return ""
}

func firstElement(lists ...[]string) string {
	for _, l := range lists {
		if len(l) > 0 && l[0] != "" {
			return l[0]
		}
	}
	return ""
}

func firstRaw(candidates ...json.RawMessage) json.RawMessage {
	for _, c := range candidates {
		if len(c) > 0 && string(c) != "null" {
			return c
		}
	}
	return nil
}

// firstScore resolves the first numeric-ish candidate. Zero counts as
// present; only an absent or unparseable field falls through.
func firstScore(candidates ...json.RawMessage) domain.ScoreValue {
	for _, c := range candidates {
		if len(c) == 0 || string(c) == "null" {
			continue
		}
		var n float64
		if err := json.Unmarshal(c, &n); err == nil {
			return domain.ScoreValue{Known: true, Value: n}
		}
		var s string
		if err := json.Unmarshal(c, &s); err == nil {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return domain.ScoreValue{Known: true, Value: n}
			}
		}
	}
	return domain.ScoreValue{}
}

func joinNames(given, family string) string {
	parts := make([]string, 0, 2)
	if given != "" {
		parts = append(parts, given)
	}
	if family != "" {
		parts = append(parts, family)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func emailLocalPart(email string) string {
	if email == "" {
		return ""
	}
	if at := strings.IndexByte(email, '@'); at >= 0 {
		return email[:at]
	}
	return email
}
