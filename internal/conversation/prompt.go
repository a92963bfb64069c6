package conversation

import (
	"fmt"
	"strings"

	"askpdf/internal/domain"
)

const DefaultSystemPrompt = "Use the following pieces of context to answer the user's question. " +
	"If you don't know the answer, just say that you don't know, don't try to make up an answer."

const condensePrompt = "Given the following conversation and a follow up question, " +
	"rephrase the follow up question to be a standalone question, in its original language.\n\n" +
	"Chat History:\n%s\nFollow Up Input: %s\nStandalone question:"

// buildMessages lays out system instructions with the retrieved context,
// then every prior turn with its own role, then the new question.
func buildMessages(system string, sources []domain.SearchResult, turns []domain.Turn, question string) []domain.Message {
	var sb strings.Builder
	sb.WriteString(system)
	if len(sources) > 0 {
		sb.WriteString("\n\nContext:\n")
		for i, s := range sources {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(s.Passage.Text)
		}
	}
	msgs := make([]domain.Message, 0, len(turns)+2)
	msgs = append(msgs, domain.Message{Role: domain.RoleSystem, Content: sb.String()})
	for _, t := range turns {
		msgs = append(msgs, domain.Message{Role: t.Role, Content: t.Content})
	}
	return append(msgs, domain.Message{Role: domain.RoleUser, Content: question})
}

func condenseMessages(turns []domain.Turn, question string) []domain.Message {
	var sb strings.Builder
	for _, t := range turns {
		switch t.Role {
		case domain.RoleUser:
			sb.WriteString("Human: ")
		case domain.RoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			continue
		}
		sb.WriteString(t.Content)
		sb.WriteString("\n")
	}
	return []domain.Message{{Role: domain.RoleUser, Content: fmt.Sprintf(condensePrompt, sb.String(), question)}}
}
