package microflow_test

import (
	"testing"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/microflow"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		input string
		want  microflow.Intent
	}{
		{"", microflow.IntentEmpty},
		{"   ", microflow.IntentEmpty},
		{"nevermind", microflow.IntentCancel},
		{"Never mind.", microflow.IntentCancel},
		{"cancel this", microflow.IntentCancel},
		{"Suggest all", microflow.IntentSuggestAll},
		{"just suggest everything please", microflow.IntentSuggestAll},
		{"show all", microflow.IntentShowAll},
		{"yes", microflow.IntentAccept},
		{"Looks good!", microflow.IntentAccept},
		{"OK.", microflow.IntentAccept},
		{"customize: Kickoff", microflow.IntentCustomize},
		{"Change 2: Field work", microflow.IntentCustomize},
		{"help", microflow.IntentHelp},
		{"I'm not sure", microflow.IntentHelp},
		{"They have studied ecosystems before", microflow.IntentAnswer},
		{"No, they are starting fresh", microflow.IntentAnswer},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, microflow.Classify(tc.input), "input %q", tc.input)
	}
}

func TestClassify_QuestionsAreHelp(t *testing.T) {
	for _, input := range []string{
		"yes, but how many phases should there be?",
		"ok?",
		"Looks good, what happens next?",
		"What do you mean by checkpoint",
		"can you suggest all of them",
		"nevermind?",
		"Accept？",
	} {
		require.Equal(t, microflow.IntentHelp, microflow.Classify(input), "input %q", input)
	}
}

func TestClassify_CancelWordsInsideAnswers(t *testing.T) {
	for _, input := range []string{
		"stop motion animation unit",
		"go back to basics first",
		"cancel culture and media literacy",
		"Nevermind the weather, they love robotics",
	} {
		require.Equal(t, microflow.IntentAnswer, microflow.Classify(input), "input %q", input)
	}
	for _, input := range []string{"cancel", "stop please", "Stop, please.", "go back now", "forget it"} {
		require.Equal(t, microflow.IntentCancel, microflow.Classify(input), "input %q", input)
	}
}

func TestClassify_FullWidthInput(t *testing.T) {
	require.Equal(t, microflow.IntentAccept, microflow.Classify("ＯＫ"))
	require.Equal(t, microflow.IntentCancel, microflow.Classify("ｃａｎｃｅｌ"))
}
