package drive

// listResponse is the JSON response from the Drive v3 files listing endpoint.
type listResponse struct {
	NextPageToken string      `json:"nextPageToken,omitempty"`
	Files         []driveFile `json:"files"`
}

// driveFile is a single file entry from a Drive listing or metadata endpoint.
type driveFile struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ModifiedTime string `json:"modifiedTime,omitempty"`
}
