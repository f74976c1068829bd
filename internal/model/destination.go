package model

// PostRef is a strong reference to a destination record.
type PostRef struct {
	URI string
	CID string
}

// ThreadNode is one hydrated post of a destination thread. Parent is nil
// when the chain ends or the parent was not returned as a full view.
type ThreadNode struct {
	Ref    PostRef
	Parent *ThreadNode
}

type Blob struct {
	Ref      string // CID of the uploaded blob
	MimeType string
	Size     int64
}

type EmbedImage struct {
	Blob   *Blob
	Alt    string
	Width  int
	Height int
}

type EmbedExternal struct {
	URL         string
	Title       string
	Description string
	Thumb       *Blob
}

type ReplyRef struct {
	Root   PostRef
	Parent PostRef
}

// Draft is a destination post ready to submit. At most one embed is set.
type Draft struct {
	Text     string
	Reply    *ReplyRef
	External *EmbedExternal
	Images   []EmbedImage
	Quote    *PostRef
}
