package services

import "strconv"

// ObjectKey derives the object-store key for an attachment: the generated id,
// an underscore, and the original filename. The id prefix keeps keys unique
// across owners and re-uploads of the same name; the filename suffix keeps
// downloaded files human-readable. Pure, no failure mode.
func ObjectKey(attachmentID int64, fileName string) string {
	return strconv.FormatInt(attachmentID, 10) + "_" + fileName
}
