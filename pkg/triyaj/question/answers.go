package question

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cognicore/triyaj/pkg/triyaj/interpret"
)

// ProfileUpdate carries the parsed fields of a context answer. Zero-valued
// fields leave the profile untouched; Chronic only applies when ChronicSet is
// true so a plain "no" can clear the list.
type ProfileUpdate struct {
	Age        *int
	Sex        string
	Pregnancy  string
	Chronic    []string
	ChronicSet bool
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Age == nil && u.Sex == "" && u.Pregnancy == "" && !u.ChronicSet
}

var ageRe = regexp.MustCompile(`\d+`)

// yesWords are the affirmative answers recognized on yes/no questions,
// including the red-flag escalation check.
var yesWords = map[string]struct{}{
	"evet":   {},
	"var":    {},
	"yes":    {},
	"oldu":   {},
	"oluyor": {},
}

// IsYes reports whether a raw answer counts as affirmative.
func IsYes(text string) bool {
	_, ok := yesWords[interpret.Normalize(text)]
	return ok
}

// noWords are the explicit denials. Anything that is neither a yes nor a no
// word is treated as free text by the caller.
var noWords = map[string]struct{}{
	"hayır":   {},
	"hayir":   {},
	"yok":     {},
	"no":      {},
	"değil":   {},
	"olmadı":  {},
	"olmuyor": {},
}

// IsNo reports whether a raw answer counts as an explicit denial.
func IsNo(text string) bool {
	_, ok := noWords[interpret.Normalize(text)]
	return ok
}

// ParseContextAnswer turns the raw answer to a context question into a
// profile update. Unknown ids and unparsable answers produce an empty update;
// pregnancy and chronic always resolve to an explicit value.
func (s *Selector) ParseContextAnswer(contextID, answer string) ProfileUpdate {
	cq, ok := s.cat.ContextQuestionByID(contextID)
	if !ok {
		return ProfileUpdate{}
	}
	answer = strings.TrimSpace(answer)

	var upd ProfileUpdate
	switch cq.ProfileField {
	case FieldAge:
		upd.Age = parseAge(answer)
	case FieldSex:
		upd.Sex = parseSex(answer)
	case FieldPregnancy:
		if IsYes(answer) {
			upd.Pregnancy = "evet"
		} else {
			upd.Pregnancy = "hayır"
		}
	case FieldChronic:
		upd.ChronicSet = true
		if IsYes(answer) {
			upd.Chronic = []string{"Var"}
		}
	}
	return upd
}

// parseAge takes the first number in the text when it is a plausible age.
func parseAge(text string) *int {
	m := ageRe.FindString(text)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 0 || n > 120 {
		return nil
	}
	return &n
}

// parseSex maps common answers to the canonical labels and passes anything
// else through untouched.
func parseSex(text string) string {
	switch interpret.Normalize(text) {
	case "":
		return ""
	case "erkek", "e", "male", "m":
		return "Erkek"
	case "kadın", "kadin", "k", "female", "f":
		return "Kadın"
	case "belirtmek istemiyorum", "istemiyorum":
		return "Belirtmek istemiyorum"
	}
	return strings.TrimSpace(text)
}
