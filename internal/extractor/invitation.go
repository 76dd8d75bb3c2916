package extractor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"syllacal/internal/availability"
	"syllacal/internal/models"
)

// InvitationRequest carries everything the invitation message mentions.
type InvitationRequest struct {
	Details       models.MeetingDetails
	Slot          availability.Slot
	AttendeeEmail string
	AttendeeName  string
	SenderName    string
	Tone          models.Tone
	// Location is the zone the date and times are written in.
	Location *time.Location
}

// GenerateInvitation drafts the calendar description sent to the attendee.
func (e *Extractor) GenerateInvitation(ctx context.Context, req InvitationRequest) (string, error) {
	if !req.Slot.End.After(req.Slot.Start) {
		return "", fmt.Errorf("invalid slot %s - %s", req.Slot.Start, req.Slot.End)
	}

	system := friendlyInvitationPrompt
	tone := req.Tone
	if tone == models.ToneFormal {
		system = formalInvitationPrompt
	} else {
		tone = models.ToneFriendly
	}

	msg, err := e.gen.Generate(ctx, Request{
		System:      system,
		Prompt:      invitationPrompt(req, tone),
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("generate invitation: %w", err)
	}
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "", fmt.Errorf("generate invitation: empty message: %w", ErrInvalidResponse)
	}
	return msg, nil
}

func invitationPrompt(req InvitationRequest, tone models.Tone) string {
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}
	start := req.Slot.Start.In(loc)
	end := req.Slot.End.In(loc)

	attendee := req.AttendeeName
	if attendee == "" {
		attendee = "not provided (use a generic greeting)"
	}
	sender := req.SenderName
	if sender == "" {
		sender = "not provided"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a %s invitation message for:\n\n", tone)
	fmt.Fprintf(&sb, "Meeting Title: %s\n", req.Details.Title)
	fmt.Fprintf(&sb, "Date: %s\n", start.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&sb, "Time: %s - %s\n", start.Format("3:04 PM"), end.Format("3:04 PM"))
	fmt.Fprintf(&sb, "Duration: %d minutes\n", int(end.Sub(start).Minutes()))
	fmt.Fprintf(&sb, "Attendee Email: %s\n", req.AttendeeEmail)
	fmt.Fprintf(&sb, "Attendee Name: %s\n", attendee)
	fmt.Fprintf(&sb, "Sender name (sign with this name): %s\n", sender)
	if req.Details.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", req.Details.Description)
	}
	sb.WriteString("\nUse the attendee's name in the greeting if it is provided.")
	return sb.String()
}
