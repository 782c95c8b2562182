package complexes

import (
	"emfit/domain/lines"
	"emfit/domain/model"
	"emfit/domain/spectrum"
)

// Hb builds an Hβ template. Narrow (and, for two-component variants,
// outflow) widths follow the [SII] reference fit; broad adds a free broad
// component.
func Hb(win *spectrum.Spectrum, sii *model.Model, v Variant, broad bool, o Options) (*model.Template, error) {
	names := []string{lines.SII6716Narrow}
	if v.Components >= 2 {
		names = append(names, lines.SII6716Outflow)
	}
	if err := requireComponents(sii, names...); err != nil {
		return nil, err
	}

	ref := component(sii, lines.SII6716Narrow)
	amp := windowPeak(win)
	t := newTemplate(lines.ComplexHb, o)

	switch {
	case v.Width == WidthFree && v.Components < 2:
		t.AddGaussian(lines.HbNarrow, amp, lines.Hb, atRest(ref, lines.Hb)).
			Bound(model.Amplitude, model.AtLeast(0)).
			Bound(model.Stddev, widthBounds(ref, lines.Hb, o.WidthFraction))
	case v.Width == WidthFree:
		out := component(sii, lines.SII6716Outflow)
		t.AddGaussian(lines.HbNarrow, amp/2, lines.Hb, atRest(ref, lines.Hb)).
			Bound(model.Amplitude, model.AtLeast(0)).
			Bound(model.Stddev, widthBounds(ref, lines.Hb, o.WidthFraction))
		t.AddGaussian(lines.HbOutflow, amp/4, lines.Hb, atRest(out, lines.Hb)).
			Bound(model.Amplitude, model.AtLeast(0)).
			Bound(model.Stddev, widthBounds(out, lines.Hb, o.WidthFraction))
	case v.Components < 2:
		t.AddGaussian(lines.HbNarrow, amp, lines.Hb, atRest(ref, lines.Hb)).
			Bound(model.Amplitude, model.AtLeast(0)).
			Tie(model.Stddev, tieToReference(lines.HbNarrow, ref))
	default:
		out := component(sii, lines.SII6716Outflow)
		t.AddGaussian(lines.HbNarrow, amp, lines.Hb, atRest(ref, lines.Hb)).
			Bound(model.Amplitude, model.AtLeast(0)).
			Tie(model.Stddev, tieToReference(lines.HbNarrow, ref))
		t.AddGaussian(lines.HbOutflow, amp/3, lines.Hb, atRest(out, lines.Hb)).
			Bound(model.Amplitude, model.AtLeast(0)).
			Tie(model.Stddev, tieToReference(lines.HbOutflow, out))
	}

	if broad {
		bAmp, bStd := amp/3, 3.0
		if v.Width == WidthFixed {
			bAmp, bStd = amp/4, 4.0
		}
		t.AddGaussian(lines.HbBroad, bAmp, lines.Hb, bStd).
			Bound(model.Amplitude, model.AtLeast(0)).
			Bound(model.Stddev, model.AtLeast(1.0))
	}
	return t, nil
}

// NIIHa builds an [NII]+Hα template. [NII] widths are always tied to [SII];
// the narrow Hα width is free within the template window or tied, per the
// variant.
func NIIHa(win *spectrum.Spectrum, sii *model.Model, v Variant, broad bool, o Options) (*model.Template, error) {
	names := []string{lines.SII6716Narrow}
	if v.Components >= 2 {
		names = append(names, lines.SII6716Outflow)
	}
	if err := requireComponents(sii, names...); err != nil {
		return nil, err
	}

	ref := component(sii, lines.SII6716Narrow)
	amp6548 := peak(win, 6548, 6550)
	amp6583 := peak(win, 6583, 6586)
	ampHa := peak(win, 6550, 6575)
	t := newTemplate(lines.ComplexNIIHa, o)

	niiDiv := 2.0
	if v.Width == WidthFixed && v.Components < 2 {
		niiDiv = 1
	}
	addNII(t, lines.NII6548Narrow, lines.NII6583Narrow, amp6548/niiDiv, amp6583/niiDiv, ref)

	haN := t.AddGaussian(lines.HaNarrow, ampHa/2, lines.Ha, atRest(ref, lines.Ha)).
		Bound(model.Amplitude, model.AtLeast(0))
	if v.Width == WidthFree {
		haN.Bound(model.Stddev, widthBounds(ref, lines.Ha, o.WidthFraction))
	} else {
		haN.Tie(model.Stddev, tieToReference(lines.HaNarrow, ref))
	}

	if v.Components >= 2 {
		out := component(sii, lines.SII6716Outflow)
		addNII(t, lines.NII6548Outflow, lines.NII6583Outflow, amp6548/4, amp6583/4, out)

		haOut := t.AddGaussian(lines.HaOutflow, ampHa/3, lines.Ha, atRest(out, lines.Ha)).
			Bound(model.Amplitude, model.AtLeast(0))
		if v.Width == WidthFree {
			haOut.Bound(model.Stddev, widthBounds(out, lines.Ha, o.WidthFraction))
		} else {
			haOut.Tie(model.Stddev, tieToReference(lines.HaOutflow, out))
		}
	}

	if broad {
		bAmp, bStd := ampHa/5, 6.0
		if v.Components >= 2 {
			bAmp, bStd = ampHa/3, 4.0
		}
		t.AddGaussian(lines.HaBroad, bAmp, lines.Ha, bStd).
			Bound(model.Amplitude, model.AtLeast(0)).
			Bound(model.Stddev, model.AtLeast(1.5))
	}
	return t, nil
}

// addNII adds an [NII] doublet whose widths follow ref in velocity space
func addNII(t *model.Template, blue, red string, ampBlue, ampRed float64, ref model.Gaussian) {
	t.AddGaussian(blue, ampBlue, lines.NII6548, atRest(ref, lines.NII6548)).
		Bound(model.Amplitude, model.AtLeast(0)).
		Tie(model.Stddev, tieToReference(blue, ref))
	t.AddGaussian(red, ampRed, lines.NII6583, atRest(ref, lines.NII6583)).
		Bound(model.Amplitude, model.AtLeast(0)).
		Tie(model.Mean, tieMeanOffset(blue, lines.NIISeparation)).
		Tie(model.Amplitude, tieAmpRatio(blue, lines.NIIRatio)).
		Tie(model.Stddev, tieToReference(red, ref))
}
