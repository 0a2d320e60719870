package browser

import (
	"encoding/json"

	"tzweb/internal/application/port"
)

func jsString(v string) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func buildIIFE(body string) string {
	return `(function(){
try {
` + body + `
} catch (err) {
return JSON.stringify({ok:false,error_code:"` + CodeEvalFailure + `",error_message:String(err && err.message || err)});
}
})()`
}

// findPrelude defines __el, the element resolved from the locator, and
// returns a NOT_FOUND envelope when it does not exist.
func findPrelude(loc port.Locator) string {
	return `var __by = ` + jsString(loc.By.String()) + `, __v = ` + jsString(loc.Value) + `;
var __el = null;
if (__by === "id") { __el = document.getElementById(__v); }
else if (__by === "xpath") { __el = document.evaluate(__v, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue; }
else { __el = document.querySelector(__v); }
if (!__el) { return JSON.stringify({ok:false,error_code:"` + CodeNotFound + `",error_message:__by + "=" + __v}); }
if (!__el.isConnected) { return JSON.stringify({ok:false,error_code:"` + CodeStale + `",error_message:__by + "=" + __v}); }
`
}

func jsClickable(loc port.Locator) string {
	return buildIIFE(findPrelude(loc) + `var r = __el.getBoundingClientRect();
var st = window.getComputedStyle(__el);
var visible = r.width > 0 && r.height > 0 && st.visibility !== "hidden" && st.display !== "none";
var enabled = !__el.disabled && __el.getAttribute("aria-disabled") !== "true";
return JSON.stringify({ok:true,data:{clickable:visible && enabled}});`)
}

func jsScrollIntoView(loc port.Locator) string {
	return buildIIFE(findPrelude(loc) + `__el.scrollIntoView({block:"center",inline:"center"});
return JSON.stringify({ok:true,data:{}});`)
}

// jsClickPoint returns the viewport center of the element, or INTERCEPTED
// when another element is on top at that point.
func jsClickPoint(loc port.Locator) string {
	return buildIIFE(findPrelude(loc) + `var r = __el.getBoundingClientRect();
var x = r.left + r.width / 2, y = r.top + r.height / 2;
if (x < 0 || y < 0 || x > window.innerWidth || y > window.innerHeight) {
  __el.scrollIntoView({block:"center",inline:"center"});
  r = __el.getBoundingClientRect();
  x = r.left + r.width / 2; y = r.top + r.height / 2;
}
var top = document.elementFromPoint(x, y);
if (top && top !== __el && !__el.contains(top)) {
  var desc = top.tagName.toLowerCase() + (top.id ? "#" + top.id : "") + (top.className && typeof top.className === "string" ? "." + top.className.split(" ").join(".") : "");
  return JSON.stringify({ok:false,error_code:"` + CodeIntercepted + `",error_message:"covered by " + desc});
}
return JSON.stringify({ok:true,data:{x:x,y:y}});`)
}

func jsScrollToTop() string {
	return buildIIFE(`window.scrollTo(0, 0);
return JSON.stringify({ok:true,data:{}});`)
}

// jsTableRows reads body rows of a table in document order. Rows with only
// <th> cells are flagged as headers.
func jsTableRows(loc port.Locator, attr string) string {
	return buildIIFE(findPrelude(loc) + `var __attr = ` + jsString(attr) + `;
var trs = [];
if (__el.tBodies && __el.tBodies.length) {
  for (var b = 0; b < __el.tBodies.length; b++) {
    trs = trs.concat(Array.prototype.slice.call(__el.tBodies[b].rows));
  }
} else {
  trs = Array.prototype.slice.call(__el.querySelectorAll("tr"));
}
var rows = [];
for (var i = 0; i < trs.length; i++) {
  var tr = trs[i], cells = [], tds = 0;
  for (var j = 0; j < tr.cells.length; j++) {
    var c = tr.cells[j];
    if (c.tagName === "TD") { tds++; }
    cells.push((c.innerText || c.textContent || "").trim());
  }
  var row = {cells:cells,header:tds === 0 && cells.length > 0};
  if (__attr && tr.hasAttribute(__attr)) { row.has_attr = true; row.attr = tr.getAttribute(__attr); }
  rows.push(row);
}
return JSON.stringify({ok:true,data:{rows:rows}});`)
}

func jsText(loc port.Locator) string {
	return buildIIFE(findPrelude(loc) + `var tag = __el.tagName;
var t = (tag === "INPUT" || tag === "SELECT" || tag === "TEXTAREA") ? __el.value : (__el.innerText || __el.textContent || "");
return JSON.stringify({ok:true,data:{text:String(t).trim()}});`)
}

// jsSetValue replaces an input's value the way typing would, so that
// framework listeners see input and change events.
func jsSetValue(loc port.Locator, value string) string {
	return buildIIFE(findPrelude(loc) + `var __val = ` + jsString(value) + `;
__el.focus();
var proto = Object.getPrototypeOf(__el);
var desc = Object.getOwnPropertyDescriptor(proto, "value");
if (desc && desc.set) { desc.set.call(__el, __val); } else { __el.value = __val; }
__el.dispatchEvent(new Event("input", {bubbles:true}));
__el.dispatchEvent(new Event("change", {bubbles:true}));
return JSON.stringify({ok:true,data:{}});`)
}

// jsSelect picks the option whose value or visible text equals value.
func jsSelect(loc port.Locator, value string) string {
	return buildIIFE(findPrelude(loc) + `var __val = ` + jsString(value) + `;
if (!__el.options) { return JSON.stringify({ok:false,error_code:"` + CodeValidation + `",error_message:"not a select element"}); }
for (var i = 0; i < __el.options.length; i++) {
  var o = __el.options[i];
  if (o.value === __val || (o.text || "").trim() === __val) {
    __el.selectedIndex = i;
    __el.dispatchEvent(new Event("change", {bubbles:true}));
    return JSON.stringify({ok:true,data:{}});
  }
}
return JSON.stringify({ok:false,error_code:"` + CodeValidation + `",error_message:"no option " + __val});`)
}

func jsFocus(loc port.Locator) string {
	return buildIIFE(findPrelude(loc) + `__el.focus();
return JSON.stringify({ok:true,data:{}});`)
}
