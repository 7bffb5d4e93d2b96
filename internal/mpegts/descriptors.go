package mpegts

// DVB/MPEG descriptor tags used for elementary stream classification.
const (
	descTagISO639Language = 0x0A
	descTagTeletext       = 0x56
	descTagVBITeletext    = 0x46
	descTagSubtitling     = 0x59
	descTagAC3            = 0x6A
	descTagEAC3           = 0x7A
)

// parseESDescriptors walks the ES descriptor loop of a PMT entry and fills
// the classification fields of es. Malformed descriptors are skipped.
func parseESDescriptors(data []byte, es *ElementaryStream) {
	offset := 0
	for offset+2 <= len(data) {
		tag := data[offset]
		length := int(data[offset+1])
		body := data[offset+2:]
		if length > len(body) {
			return
		}
		body = body[:length]

		switch tag {
		case descTagISO639Language:
			// language_code(3) + audio_type(1), first entry only.
			if len(body) >= 4 {
				es.Language = string(body[:3])
				es.AudioType = body[3]
			}

		case descTagTeletext, descTagVBITeletext:
			// language_code(3) + type(5 bits) + magazine(3 bits) + page(8 bits)
			if len(body) >= 5 && es.Teletext == nil {
				es.Teletext = &TeletextDescriptor{
					Language:    string(body[:3]),
					Type:        body[3] >> 3,
					MagazineNum: body[3] & 0x07,
					PageNum:     body[4],
				}
			}

		case descTagSubtitling:
			// language_code(3) + subtitling_type(1) + composition_page_id(2) +
			// ancillary_page_id(2)
			if len(body) >= 8 && es.Subtitle == nil {
				es.Subtitle = &SubtitlingDescriptor{
					Language:          string(body[:3]),
					SubtitlingType:    body[3],
					CompositionPageID: uint16(body[4])<<8 | uint16(body[5]),
					AncillaryPageID:   uint16(body[6])<<8 | uint16(body[7]),
				}
			}

		case descTagAC3:
			es.AC3 = true

		case descTagEAC3:
			es.EAC3 = true
		}

		offset += 2 + length
	}
}
