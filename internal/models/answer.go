package models

// FailureNotice is the only text shown to the student when a turn fails.
const FailureNotice = "Sorry, I couldn't generate a response."

// StudyAnswer is the structured result of one model call. The lists are never
// nil so that an empty answer still serialises as [].
type StudyAnswer struct {
	Answer            string   `json:"answer" jsonschema:"description=A direct and clear explanation in natural language"`
	KeyPoints         []string `json:"key_points" jsonschema:"description=3 to 6 short focused takeaways"`
	FollowUpQuestions []string `json:"follow_up_questions" jsonschema:"description=2 short questions the student might ask next"`
	References        []string `json:"references" jsonschema:"description=External references or sources if available otherwise empty"`
}

// FallbackAnswer is the degraded record used when model output cannot be
// decoded into a StudyAnswer.
func FallbackAnswer(answer string) StudyAnswer {
	return StudyAnswer{
		Answer:            answer,
		KeyPoints:         []string{},
		FollowUpQuestions: []string{},
		References:        []string{},
	}
}
