package writer

import "github.com/vellumpdf/pdf/model"

// SetEncryption enables RC4 Standard Security Handler encryption for the
// output file: every object written afterward (besides the /Encrypt
// dictionary itself) is RC4-encrypted under a key derived from
// ownerPassword/userPassword and this Writer's file /ID. revision
// selects algorithm 2 (40-bit only) or 3 (up to 128-bit, keyLengthBits
// must be a multiple of 8 in [40,128]).
func (w *Writer) SetEncryption(ownerPassword, userPassword string, permissions model.UserPermissions, revision, keyLengthBits int) error {
	if revision != 2 && revision != 3 {
		return model.NewError(model.KindUnsupportedEncryption, "writer", "unsupported revision %d", revision)
	}
	if revision == 2 {
		keyLengthBits = 40
	}

	handler := model.NewRC4SecurityHandler(model.Encrypt{
		V:               revision - 1,
		R:               revision,
		Length:          keyLengthBits,
		P:               permissions,
		ID:              string(w.fileID[:]),
		EncryptMetadata: true,
	})

	ownerHash := handler.GenerateOwnerHash(userPassword, ownerPassword)
	key := handler.GenerateEncryptionKey(userPassword, ownerHash)
	userHash := handler.GenerateUserHash(key)

	dict := model.Dict{
		"Filter": model.Name("Standard"),
		"V":      model.Integer(revision - 1),
		"R":      model.Integer(revision),
		"O":      model.NewRawString(ownerHash[:]),
		"U":      model.NewRawString(userHash[:]),
		"P":      model.Integer(int32(permissions)),
	}
	if revision >= 3 {
		dict["Length"] = model.Integer(keyLengthBits)
	}

	w.encryptKey = key
	w.encryptObj = w.NewObject(dict).Number
	return nil
}
