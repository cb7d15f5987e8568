package reader

import (
	"github.com/vellumpdf/pdf/model"
)

// Decrypt authenticates password against the Standard Security Handler's
// /U and /O entries and, on success, installs the resulting document key
// so all subsequent dereferences are transparently RC4-decrypted. It
// returns model.DecryptNoMatch without error when the document carries no
// /Encrypt dictionary at all.
func (d *Document) Decrypt(password string) (model.DecryptResult, error) {
	if d.trailer.Encrypt == nil {
		return model.DecryptNoMatch, nil
	}

	encDict, err := d.encryptDict()
	if err != nil {
		return model.DecryptNoMatch, err
	}

	enc, err := parseEncryptDict(encDict, d.trailer.ID)
	if err != nil {
		return model.DecryptNoMatch, err
	}
	if enc.V != 1 && enc.V != 2 {
		return model.DecryptNoMatch, model.NewError(model.KindUnsupportedEncryption, "encrypt", "unsupported /V %d", enc.V)
	}

	handler := model.NewRC4SecurityHandler(enc)
	d.security = handler
	d.ownerHash, d.userHash = enc.O, enc.U

	if key, ok := handler.AuthUserPassword(password, enc.O, enc.U); ok {
		d.installKey(key)
		return model.DecryptUser, nil
	}
	if key, ok := handler.AuthOwnerPassword(password, enc.O, enc.U); ok {
		d.installKey(key)
		return model.DecryptOwner, nil
	}
	return model.DecryptNoMatch, nil
}

func (d *Document) installKey(key []byte) {
	d.encryptKey = key
	// previously resolved objects (besides the /Encrypt dict itself, which
	// is never stored encrypted) must be re-read now that a key exists.
	for ref := range d.cache {
		if d.encryptRef != nil && ref == *d.encryptRef {
			continue
		}
		delete(d.cache, ref)
	}
	d.streamCache = map[model.Reference][]byte{}
	d.objStmCache = map[int]objStmEntries{}
}

// encryptDict returns the /Encrypt dict, bypassing decryption: the
// dictionary describing the encryption itself is always stored in the
// clear, never encrypted under its own key.
func (d *Document) encryptDict() (model.Dict, error) {
	switch v := d.trailer.Encrypt.(type) {
	case model.Dict:
		return v, nil
	case model.IndirectRef:
		obj, err := d.GetObject(v.Ref)
		if err != nil {
			return nil, err
		}
		dict, ok := obj.(model.Dict)
		if !ok {
			return nil, model.NewError(model.KindMalformed, "encrypt", "/Encrypt is not a dict")
		}
		return dict, nil
	default:
		return nil, model.NewError(model.KindMalformed, "encrypt", "unexpected /Encrypt value %T", v)
	}
}

func parseEncryptDict(d model.Dict, id model.Array) (model.Encrypt, error) {
	var enc model.Encrypt
	if filter, _ := d.Lookup("Filter").(model.Name); filter != "" && filter != "Standard" {
		return enc, model.NewError(model.KindUnsupportedEncryption, "encrypt", "unsupported /Filter %q", filter)
	}
	enc.V, _ = model.AsInt(d.Lookup("V"))
	enc.R, _ = model.AsInt(d.Lookup("R"))
	length, ok := model.AsInt(d.Lookup("Length"))
	if !ok {
		length = 40
	}
	enc.Length = length

	if o, ok := d.Lookup("O").(model.String); ok {
		copy(enc.O[:], o.Raw)
	}
	if u, ok := d.Lookup("U").(model.String); ok {
		copy(enc.U[:], u.Raw)
	}
	if p, ok := model.AsInt(d.Lookup("P")); ok {
		enc.P = model.UserPermissions(uint32(p))
	}
	enc.EncryptMetadata = true
	if em, ok := d.Lookup("EncryptMetadata").(model.Bool); ok {
		enc.EncryptMetadata = bool(em)
	}
	if len(id) > 0 {
		if s, ok := id[0].(model.String); ok {
			enc.ID = string(s.Raw)
		}
	}
	return enc, nil
}
