package browser

// agentJS is the page-side agent injected into each top-level page. It
// owns the element cache for the lifetime of one scan, performs visual
// actuation, and answers the scan / apply / find-search-input / clear
// calls. Indices handed out by scan() are only valid against the cache
// that produced them; every scan replaces the cache wholesale.
//
// No template literals: the source is embedded in a Go raw string.
const agentJS = `(function () {
  'use strict';
  if (window.__wayfindReady) { return "ok"; }

  var MAX_DEPTH = 10;
  var MAX_ELEMENTS = 300;
  var TEXT_CAP = 80;

  var SELECTOR = 'a, button, input, select, textarea, ' +
    '[role="button"], [role="link"], [role="checkbox"], [role="menuitem"], ' +
    '[role="tab"], [role="textbox"], [role="searchbox"], [onclick], [tabindex]';

  var cache = [];

  function isVisible(el) {
    if (!el || !el.getBoundingClientRect) { return false; }
    var rect = el.getBoundingClientRect();
    if (rect.width < 5 || rect.height < 5) { return false; }
    var doc = el.ownerDocument;
    var win = doc.defaultView || window;
    var style = win.getComputedStyle(el);
    if (style.display === 'none' || style.visibility === 'hidden') { return false; }
    if (style.opacity !== '' && parseFloat(style.opacity) === 0) { return false; }
    return true;
  }

  function textOf(el) {
    var t = '';
    if (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA' || el.tagName === 'SELECT') {
      t = el.value || el.placeholder || '';
    } else {
      t = el.innerText || el.textContent || '';
    }
    t = t.replace(/\s+/g, ' ').trim();
    if (t.length > TEXT_CAP) { t = t.slice(0, TEXT_CAP - 3) + '...'; }
    return t;
  }

  function xpathFor(el) {
    var doc = el.ownerDocument;
    if (el.id && doc.querySelectorAll('[id="' + CSS.escape(el.id) + '"]').length === 1) {
      return '//*[@id="' + el.id + '"]';
    }
    var parts = [];
    var node = el;
    while (node && node.nodeType === 1 && node !== doc.documentElement) {
      var index = 1;
      var sib = node.previousElementSibling;
      while (sib) {
        if (sib.tagName === node.tagName) { index++; }
        sib = sib.previousElementSibling;
      }
      parts.unshift(node.tagName.toLowerCase() + '[' + index + ']');
      node = node.parentElement;
    }
    return '/html/' + parts.join('/');
  }

  function collect(root, depth, out, framePath) {
    if (depth > MAX_DEPTH || out.length >= MAX_ELEMENTS) { return; }
    var nodes;
    try { nodes = root.querySelectorAll(SELECTOR); } catch (e) { return; }
    for (var i = 0; i < nodes.length; i++) {
      if (out.length >= MAX_ELEMENTS) { return; }
      var el = nodes[i];
      if (!isVisible(el)) { continue; }
      var tag = el.tagName.toLowerCase();
      var text = textOf(el);
      var labeled = text || el.getAttribute('aria-label') || el.getAttribute('title');
      if (!labeled && tag !== 'input' && tag !== 'select' && tag !== 'textarea') { continue; }
      out.push({ el: el, framePath: framePath });
    }
    // Shadow roots attached anywhere under this root.
    var all;
    try { all = root.querySelectorAll('*'); } catch (e) { return; }
    for (var j = 0; j < all.length; j++) {
      if (out.length >= MAX_ELEMENTS) { return; }
      if (all[j].shadowRoot) { collect(all[j].shadowRoot, depth + 1, out, framePath); }
    }
  }

  function describe(found, index) {
    var el = found.el;
    return {
      index: index,
      tag: el.tagName.toLowerCase(),
      role: el.getAttribute('role') || '',
      inputType: el.tagName === 'INPUT' ? (el.getAttribute('type') || 'text').toLowerCase() : '',
      text: textOf(el),
      name: el.getAttribute('name') || '',
      ariaLabel: el.getAttribute('aria-label') || '',
      title: el.getAttribute('title') || '',
      placeholder: el.getAttribute('placeholder') || '',
      href: (el.tagName === 'A' && el.href) ? String(el.href) : '',
      xpath: xpathFor(el),
      framePath: found.framePath || ''
    };
  }

  function scan() {
    var page = { url: location.href, title: document.title };
    if (window.top !== window) {
      return { status: 'skipped', reason: 'embedded_frame', page: page, elements: [] };
    }

    var found = [];
    collect(document, 0, found, '');

    var iframes = [];
    var frames = document.querySelectorAll('iframe');
    for (var i = 0; i < frames.length; i++) {
      var frame = frames[i];
      var summary = {
        src: frame.getAttribute('src') || '',
        id: frame.id || '',
        name: frame.getAttribute('name') || ''
      };
      var doc = null;
      try { doc = frame.contentDocument; } catch (e) { doc = null; }
      if (doc) {
        if (found.length < MAX_ELEMENTS) { collect(doc, 0, found, xpathFor(frame)); }
      } else {
        summary.crossOrigin = true;
      }
      iframes.push(summary);
    }

    cache = found.map(function (f) { return f.el; });
    var elements = found.map(describe);
    var textSample = '';
    if (document.body) {
      textSample = (document.body.innerText || '').replace(/\s+/g, ' ').slice(0, 1500);
    }
    return { status: 'ok', page: page, elements: elements, iframes: iframes, textSample: textSample };
  }

  // --- highlight -----------------------------------------------------

  var hl = { host: null, box: null, label: null, target: null, targetDoc: null, direct: false };
  var rafPending = false;

  function needsDirectHighlight(el) {
    if (el.closest && el.closest('dialog, [role="dialog"], [aria-modal="true"], .modal, .ReactModal__Overlay')) {
      return true;
    }
    var win = (el.ownerDocument && el.ownerDocument.defaultView) || window;
    for (var a = el.parentElement; a; a = a.parentElement) {
      var cs = win.getComputedStyle(a);
      if (cs.transform !== 'none' || cs.filter !== 'none' || cs.perspective !== 'none') {
        return true;
      }
    }
    return false;
  }

  function makeHost(doc) {
    var host;
    var dialog = doc.createElement('dialog');
    if (typeof dialog.showModal === 'function') {
      host = dialog;
      host.setAttribute('data-wayfind-overlay', '');
      host.style.cssText = 'border:none;background:transparent;padding:0;margin:0;' +
        'position:fixed;inset:0;width:100vw;height:100vh;max-width:100vw;max-height:100vh;' +
        'pointer-events:none;overflow:visible;';
      doc.body.appendChild(host);
      try { host.showModal(); } catch (e) { /* already-open dialog elsewhere */ }
    } else {
      host = doc.createElement('div');
      host.setAttribute('data-wayfind-overlay', '');
      host.style.cssText = 'position:fixed;inset:0;pointer-events:none;' +
        'z-index:2147483647;isolation:isolate;';
      doc.body.appendChild(host);
    }
    return host;
  }

  function positionBox() {
    if (!hl.target || !hl.target.isConnected || !hl.box) { return; }
    var rect = hl.target.getBoundingClientRect();
    hl.box.style.left = (rect.left - 4) + 'px';
    hl.box.style.top = (rect.top - 4) + 'px';
    hl.box.style.width = (rect.width + 8) + 'px';
    hl.box.style.height = (rect.height + 8) + 'px';
    if (hl.label) {
      hl.label.style.left = rect.left + 'px';
      hl.label.style.top = Math.max(0, rect.top - 26) + 'px';
    }
  }

  function refresh() {
    if (rafPending) { return; }
    rafPending = true;
    requestAnimationFrame(function () {
      rafPending = false;
      positionBox();
    });
  }

  function restoreDirect() {
    var el = hl.target;
    if (hl.direct && el && el.dataset) {
      el.style.outline = el.dataset.wayfindPrevOutline || '';
      el.style.boxShadow = el.dataset.wayfindPrevShadow || '';
      delete el.dataset.wayfindPrevOutline;
      delete el.dataset.wayfindPrevShadow;
    }
    hl.direct = false;
  }

  function removeOverlays(doc) {
    if (!doc) { return; }
    var hosts = doc.querySelectorAll('[data-wayfind-overlay]');
    for (var i = 0; i < hosts.length; i++) {
      var h = hosts[i];
      if (typeof h.close === 'function') { try { h.close(); } catch (e) {} }
      if (h.parentNode) { h.parentNode.removeChild(h); }
    }
  }

  function clearHighlight() {
    restoreDirect();
    removeOverlays(document);
    if (hl.targetDoc && hl.targetDoc !== document) { removeOverlays(hl.targetDoc); }
    try {
      if (window.top !== window && window.top.document) { removeOverlays(window.top.document); }
    } catch (e) { /* cross-origin top */ }
    hl.host = null;
    hl.box = null;
    hl.label = null;
    hl.target = null;
    hl.targetDoc = null;
    return { ok: true };
  }

  function drawHighlight(el, labelText) {
    clearHighlight();
    hl.target = el;
    hl.targetDoc = el.ownerDocument;

    if (needsDirectHighlight(el)) {
      hl.direct = true;
      el.dataset.wayfindPrevOutline = el.style.outline || '';
      el.dataset.wayfindPrevShadow = el.style.boxShadow || '';
      el.style.outline = '3px solid #e8590c';
      el.style.boxShadow = '0 0 0 6px rgba(232,89,12,0.3)';
      return;
    }

    var doc = el.ownerDocument;
    hl.host = makeHost(doc);
    hl.box = doc.createElement('div');
    hl.box.style.cssText = 'position:fixed;border:3px solid #e8590c;border-radius:6px;' +
      'box-shadow:0 0 0 6px rgba(232,89,12,0.3);pointer-events:none;';
    hl.host.appendChild(hl.box);
    if (labelText) {
      hl.label = doc.createElement('div');
      hl.label.textContent = labelText;
      hl.label.style.cssText = 'position:fixed;background:#e8590c;color:#fff;' +
        'font:12px/1.6 sans-serif;padding:1px 8px;border-radius:4px;pointer-events:none;';
      hl.host.appendChild(hl.label);
    }
    positionBox();
  }

  window.addEventListener('scroll', refresh, true);
  window.addEventListener('resize', refresh);

  // --- actuation -----------------------------------------------------

  function docFor(framePath) {
    if (!framePath) { return document; }
    try {
      var r = document.evaluate(framePath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
      var frame = r.singleNodeValue;
      return frame ? frame.contentDocument : null;
    } catch (e) { return null; }
  }

  function resolveTarget(cmd) {
    if (typeof cmd.index === 'number' && cmd.index >= 0 && cmd.index < cache.length) {
      var cached = cache[cmd.index];
      if (cached && cached.isConnected) { return cached; }
    }
    if (cmd.xpath) {
      var doc = docFor(cmd.framePath || '');
      if (doc) {
        try {
          var r = doc.evaluate(cmd.xpath, doc, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null);
          if (r.singleNodeValue) { return r.singleNodeValue; }
        } catch (e) { /* locator mismatch */ }
      }
    }
    return null;
  }

  function setNativeValue(el, value) {
    var proto = el instanceof HTMLTextAreaElement ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
    var desc = Object.getOwnPropertyDescriptor(proto, 'value');
    if (desc && desc.set) { desc.set.call(el, value); } else { el.value = value; }
    el.dispatchEvent(new Event('input', { bubbles: true }));
    el.dispatchEvent(new Event('change', { bubbles: true }));
  }

  function pressEnter(el) {
    var opts = { key: 'Enter', code: 'Enter', keyCode: 13, which: 13, bubbles: true, cancelable: true };
    el.dispatchEvent(new KeyboardEvent('keydown', opts));
    el.dispatchEvent(new KeyboardEvent('keyup', opts));
  }

  function apply(cmd) {
    var el = resolveTarget(cmd);
    if (!el) { return { ok: false, reason: 'not_found' }; }
    if (!isVisible(el)) { return { ok: false, reason: 'not_visible' }; }

    try { el.scrollIntoView({ block: 'center', inline: 'nearest' }); } catch (e) {}
    drawHighlight(el, cmd.label || '');

    if (cmd.kind === 'type') {
      try { el.focus(); } catch (e) {}
      setNativeValue(el, cmd.value || '');
      if (cmd.submitAfter) { pressEnter(el); }
      return { ok: true };
    }

    try { el.focus(); } catch (e) {}
    // Click after a beat so the highlight is visible before the page
    // reacts (navigation tears the overlay down anyway).
    setTimeout(function () { try { el.click(); } catch (e) {} }, 400);
    return { ok: true };
  }

  function findSearchInput() {
    for (var i = 0; i < cache.length; i++) {
      var el = cache[i];
      if (!el || !el.isConnected || el.tagName !== 'INPUT') { continue; }
      var type = (el.getAttribute('type') || 'text').toLowerCase();
      if (type !== 'text' && type !== 'search') { continue; }
      var hint = ((el.getAttribute('name') || '') + ' ' +
        (el.getAttribute('placeholder') || '') + ' ' +
        (el.getAttribute('aria-label') || '')).toLowerCase();
      if (type === 'search' || hint.indexOf('search') !== -1 ||
          el.getAttribute('name') === 'q' || el.getAttribute('name') === 'query') {
        return { found: true, index: i, placeholder: el.getAttribute('placeholder') || '' };
      }
    }
    return { found: false, index: -1 };
  }

  window.__wayfind = {
    scan: scan,
    apply: apply,
    findSearchInput: findSearchInput,
    clearHighlight: clearHighlight
  };
  window.__wayfindReady = true;
  return "ok";
})();`
