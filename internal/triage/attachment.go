package triage

// Attachment is an uploaded image or document accompanying a chat turn. The
// zero/nil value means no attachment; call sites branch on Present instead of
// re-sniffing the upload at every layer.
type Attachment struct {
	Filename string
	Data     []byte
}

func (a *Attachment) Present() bool {
	return a != nil && len(a.Data) > 0
}

// TurnInput is one incoming user turn. Message may be empty if an attachment
// is provided.
type TurnInput struct {
	Message string
	Image   *Attachment
	File    *Attachment
}

func (in TurnInput) Empty() bool {
	return in.Message == "" && !in.Image.Present() && !in.File.Present()
}
