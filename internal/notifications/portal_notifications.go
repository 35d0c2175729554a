package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golbarg/internal/domain/storage"

	"github.com/9ssi7/exponent"
)

// SendDailyReportToParent - notify a parent that a new daily report was
// posted for their child.
func SendDailyReportToParent(ctx context.Context, push PushSender, store *storage.Container, parentID, childID int64, childName string) error {
	tokensMap, err := store.PushTokens.GetTokensByUserIDs(ctx, []int64{parentID})
	if err != nil {
		return err
	}
	tokens := dedupe(tokensMap[parentID])
	if len(tokens) == 0 {
		return errors.New("no push tokens")
	}

	msgs := make([]*exponent.Message, 0, len(tokens))
	title := "New daily report"
	body := fmt.Sprintf("Today's report for %s is ready", childName)
	screen := fmt.Sprintf("children/%s/reports", strconv.FormatInt(childID, 10))
	for _, t := range tokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: title,
			Body:  body,
			Data: map[string]string{
				"type":     "daily_report",
				"child_id": strconv.FormatInt(childID, 10),
				"screen":   screen,
			},
		})
	}

	_, err = push.Publish(ctx, msgs)
	return err
}

// SendNewsToParents - notify every parent that a news update was published.
func SendNewsToParents(ctx context.Context, push PushSender, store *storage.Container, newsID int64, title string) error {
	parents, err := store.Users.ListParents(ctx)
	if err != nil {
		return fmt.Errorf("error listing parents: %w", err)
	}
	if len(parents) == 0 {
		return errors.New("no parents found")
	}

	parentIDs := make([]int64, 0, len(parents))
	for _, p := range parents {
		parentIDs = append(parentIDs, p.ID)
	}

	tokensMap, err := store.PushTokens.GetTokensByUserIDs(ctx, parentIDs)
	if err != nil {
		return fmt.Errorf("error getting parent tokens: %w", err)
	}

	allTokens := make([]string, 0)
	for _, tokens := range tokensMap {
		allTokens = append(allTokens, tokens...)
	}
	compactTokens := dedupe(allTokens)
	if len(compactTokens) == 0 {
		return errors.New("no push tokens found for any parents")
	}

	msgs := make([]*exponent.Message, 0, len(compactTokens))
	body := title
	screen := fmt.Sprintf("news/%s", strconv.FormatInt(newsID, 10))
	for _, t := range compactTokens {
		token := exponent.Token(t)
		msgs = append(msgs, &exponent.Message{
			To:    []*exponent.Token{&token},
			Title: "Kindergarten news",
			Body:  body,
			Data: map[string]string{
				"type":    "news_published",
				"news_id": strconv.FormatInt(newsID, 10),
				"screen":  screen,
			},
		})
	}

	_, err = push.Publish(ctx, msgs)
	if err != nil {
		return fmt.Errorf("error sending news notifications: %w", err)
	}
	return nil
}
