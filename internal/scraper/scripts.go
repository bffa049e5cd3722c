package scraper

import (
	"fmt"
	"time"
)

// playSelectors are tried in order for the first visible play control of a frame.
var playSelectors = []string{
	"button.play",
	".play-button",
	"[class*=\"play\"]",
	"button[aria-label*=\"play\" i]",
	".vjs-big-play-button",
	"video",
}

// basicPlaySelector is the single selector chromedriver waits on.
const basicPlaySelector = `button.play, .play-button, [class*="play"]`

// topDocumentPlayScript plays and clicks in the top document and in every
// iframe it can reach (same-origin only).
const topDocumentPlayScript = `(() => {
	let videos = 0, clicked = 0;
	const play = doc => {
		doc.querySelectorAll('video').forEach(v => {
			videos++;
			try { v.muted = true; const p = v.play(); if (p && p.catch) p.catch(() => {}); v.click(); } catch (e) {}
		});
		doc.querySelectorAll('button, [class*="play"]').forEach(b => {
			try { b.click(); clicked++; } catch (e) {}
		});
	};
	play(document);
	document.querySelectorAll('iframe').forEach(f => {
		try { if (f.contentDocument) play(f.contentDocument); } catch (e) {}
	});
	return {videos, clicked};
})()`

// frameInteractionScript runs inside one frame: click every video, click the
// first 5 visible buttons, then force-play and click anything play-like.
// Each video and button click is followed by pause.
func frameInteractionScript(pause time.Duration) string {
	return fmt.Sprintf(frameInteractionTemplate, pause.Milliseconds())
}

const frameInteractionTemplate = `(async () => {
	const pauseMs = %d;
	const wait = () => pauseMs > 0 ? new Promise(r => setTimeout(r, pauseMs)) : Promise.resolve();
	const visible = el => {
		const r = el.getBoundingClientRect();
		const s = window.getComputedStyle(el);
		return r.width > 0 && r.height > 0 && s.visibility !== 'hidden' && s.display !== 'none';
	};
	let videos = 0, clicked = 0;
	for (const v of document.querySelectorAll('video')) {
		videos++;
		try { v.click(); clicked++; } catch (e) { continue; }
		await wait();
	}
	const buttons = Array.from(document.querySelectorAll('button, [role="button"], .play, [class*="play"]')).filter(visible).slice(0, 5);
	for (const b of buttons) {
		try { b.click(); clicked++; } catch (e) { continue; }
		await wait();
	}
	document.querySelectorAll('video').forEach(v => {
		try { v.muted = true; const p = v.play(); if (p && p.catch) p.catch(() => {}); } catch (e) {}
	});
	document.querySelectorAll('[class*="play"], [id*="play"], button, [role="button"]').forEach(el => {
		try { el.click(); } catch (e) {}
	});
	return {videos, clicked, url: location.href};
})()`

// pageHTMLScript returns the serialized document.
const pageHTMLScript = `document.documentElement.outerHTML`
