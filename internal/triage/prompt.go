package triage

import (
	"fmt"
	"strings"

	"clinic-backend/internal/database"
)

// AttachmentPlaceholder stands in for the message text of attachment-only
// turns, both in prompts and in rendered history.
const AttachmentPlaceholder = "[file/image]"

// NoHospitalMarker is rendered when the directory contains no hospitals.
const NoHospitalMarker = "N/A"

// PromptInput carries everything the composer needs for one turn.
type PromptInput struct {
	History         []database.ChatMessage
	Message         string
	Doctors         []database.Doctor
	NearestHospital string // empty if no hospitals exist
	AttachmentText  string // extracted from the uploaded file, may be empty
	Language        string
}

// ComposePrompt renders the prompt sections in a fixed order: conversation
// history, the new user message, the doctor directory, the nearest hospital,
// and the response-format instruction. The model relies on this order, so it
// must not change between turns of a session.
func ComposePrompt(in PromptInput) string {
	var b strings.Builder

	if len(in.History) > 0 {
		b.WriteString("Previous chat history:\n")
		for _, msg := range in.History {
			b.WriteString(historyLine(msg))
			b.WriteByte('\n')
		}
	}

	message := in.Message
	if message == "" {
		message = AttachmentPlaceholder
	}
	fmt.Fprintf(&b, "New user message: %s\n", message)

	if in.AttachmentText != "" {
		fmt.Fprintf(&b, "Text extracted from user's file:\n%s\n", in.AttachmentText)
	}

	b.WriteString("Doctors available:\n")
	for _, doc := range in.Doctors {
		b.WriteString(doctorLine(doc))
		b.WriteByte('\n')
	}

	nearest := in.NearestHospital
	if nearest == "" {
		nearest = NoHospitalMarker
	}
	fmt.Fprintf(&b, "Nearest hospital: %s\n", nearest)

	fmt.Fprintf(&b, "The user wrote in %s; respond in the same language.\n", in.Language)
	b.WriteString(
		"At the very end of your response, after the advice, append a bracketed " +
			"comma-separated list of the IDs of the recommended doctors from the list " +
			"above, for example [1, 2]. If no doctor is relevant append []. Nothing " +
			"may come after the list.\n")

	return b.String()
}

func historyLine(msg database.ChatMessage) string {
	role := "AI"
	if msg.FromUser {
		role = "User"
	}
	content := AttachmentPlaceholder
	if msg.Content.Valid && msg.Content.String != "" {
		content = msg.Content.String
	}
	return fmt.Sprintf("%s: %s", role, content)
}

func doctorLine(doc database.Doctor) string {
	hospital := "unknown hospital"
	lat, lon := 0.0, 0.0
	if doc.Hospital != nil {
		hospital = doc.Hospital.Name
		lat, lon = doc.Hospital.Latitude, doc.Hospital.Longitude
	}
	return fmt.Sprintf("%d. %s (%s) at %s [%v, %v]", doc.ID, doc.Name, doc.Field, hospital, lat, lon)
}
