// Package slackx – message formatting.
//
// FormatEvent renders a normalized earthquake event as Slack Block Kit
// content. Intensity classes are shown verbatim ("5-", "6+") since the JMA
// half-step notation is what recipients expect; absent values render as 不明
// rather than zeros.
package slackx

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/hkawai/go-quake-backend/internal/domain"
)

// Message is a formatted Slack payload: Block Kit blocks plus a plain-text
// fallback for notifications and clients that do not render blocks.
type Message struct {
	Fallback string
	Blocks   []slack.Block
}

const trainingPrefix = "【訓練】"

// FormatEvent builds the notification message for one event. Training
// dispatches are prefixed so drill traffic is unmistakable in-channel.
func FormatEvent(ev *domain.EarthquakeEvent, purpose domain.Purpose) Message {
	title := ev.Title
	if title == "" {
		title = "地震情報"
	}
	if purpose == domain.PurposeTraining {
		title = trainingPrefix + title
	}

	fields := []*slack.TextBlockObject{
		mrkdwn("*震央*\n" + orUnknown(ev.Epicenter)),
		mrkdwn("*最大震度*\n" + intensityLabel(ev.MaxIntensity)),
		mrkdwn("*マグニチュード*\n" + floatLabel(ev.Magnitude, "M%.1f")),
		mrkdwn("*深さ*\n" + floatLabel(ev.Depth, "約%.0fkm")),
	}
	if ev.OccurrenceTime != nil {
		fields = append(fields, mrkdwn("*発生時刻*\n"+ev.OccurrenceTime.Format(timeLabel)))
	}

	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject(slack.PlainTextType, title, true, false)),
		slack.NewSectionBlock(nil, fields, nil),
	}

	if len(ev.Observations) > 0 {
		var lines []string
		for _, o := range ev.Observations {
			lines = append(lines, fmt.Sprintf("%s: 震度%s", o.PrefectureName, o.MaxIntensity))
		}
		blocks = append(blocks, slack.NewContextBlock("",
			mrkdwn(strings.Join(lines, " / ")),
		))
	}

	fallback := fmt.Sprintf("%s 震央: %s 最大震度: %s",
		title, orUnknown(ev.Epicenter), intensityLabel(ev.MaxIntensity))

	return Message{Fallback: fallback, Blocks: blocks}
}

const timeLabel = "2006-01-02 15:04"

func mrkdwn(text string) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.MarkdownType, text, false, false)
}

func orUnknown(s string) string {
	if s == "" {
		return "不明"
	}
	return s
}

func intensityLabel(in *domain.Intensity) string {
	if in == nil {
		return "不明"
	}
	return string(*in)
}

func floatLabel(f *float64, format string) string {
	if f == nil {
		return "不明"
	}
	return fmt.Sprintf(format, *f)
}
