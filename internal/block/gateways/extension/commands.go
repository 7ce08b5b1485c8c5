package extension

import (
	"context"

	"github.com/haukened/siteblock/internal/block/domain"
)

// CloseTab closes the tab with the given id.
func (s *Server) CloseTab(ctx context.Context, tabID int) error {
	_, err := s.call(ctx, OutgoingMsg{Type: CmdCloseTab, TabID: tabID}, s.commandTimeout)
	return err
}

// OpenTab opens a new tab at url.
func (s *Server) OpenTab(ctx context.Context, url string) error {
	_, err := s.call(ctx, OutgoingMsg{Type: CmdOpenTab, URL: url}, s.commandTimeout)
	return err
}

// ReloadTab reloads the tab with the given id.
func (s *Server) ReloadTab(ctx context.Context, tabID int) error {
	_, err := s.call(ctx, OutgoingMsg{Type: CmdReloadTab, TabID: tabID}, s.commandTimeout)
	return err
}

// PageContent asks the extension to read the title and description of the
// page shown in tabID.
func (s *Server) PageContent(ctx context.Context, tabID int, pageURL string) (domain.PageContent, error) {
	resp, err := s.call(ctx, OutgoingMsg{Type: CmdExtractContent, TabID: tabID, URL: pageURL}, s.commandTimeout)
	if err != nil {
		return domain.PageContent{}, err
	}
	return domain.PageContent{Title: resp.Title, Description: resp.Description}, nil
}

// Prompt shows the in-page block prompt and returns the user's choice.
// Anything other than "domain" or "url" counts as cancel.
func (s *Server) Prompt(ctx context.Context, tabID int, pageURL, hostname string) (domain.PromptChoice, error) {
	resp, err := s.call(ctx, OutgoingMsg{Type: CmdPrompt, TabID: tabID, URL: pageURL, Hostname: hostname}, s.promptTimeout)
	if err != nil {
		return domain.ChoiceNone, err
	}
	choice := domain.PromptChoice(resp.Choice)
	if _, ok := choice.Scope(); !ok {
		return domain.ChoiceNone, nil
	}
	return choice, nil
}
