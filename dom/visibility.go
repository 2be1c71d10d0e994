package dom

// HiddenClass marks an element as not shown
const HiddenClass = "hidden"

// Show makes el visible. Showing a shown element is a no-op.
func Show(els ...*Element) {
	for _, el := range els {
		if el != nil {
			el.RemoveClass(HiddenClass)
		}
	}
}

// Hide makes el invisible. Hiding a hidden element is a no-op.
func Hide(els ...*Element) {
	for _, el := range els {
		if el != nil {
			el.AddClass(HiddenClass)
		}
	}
}

// Hidden reports whether el itself carries the hidden marker
func Hidden(el *Element) bool {
	return el.HasClass(HiddenClass)
}

// Visible reports whether el and all of its ancestors are shown
func Visible(el *Element) bool {
	for n := el; n != nil; n = n.parent {
		if Hidden(n) {
			return false
		}
	}
	return true
}

// BindHover reveals the nearest descendant of container carrying class while
// the pointer is inside container, and conceals it when the pointer leaves.
func BindHover(container *Element, class string) {
	container.On(MouseEnter, func(*Event) {
		Show(container.Find(class))
	})
	container.On(MouseLeave, func(*Event) {
		Hide(container.Find(class))
	})
}

// BindHoverAll applies BindHover to every element carrying containerClass
func BindHoverAll(d *Document, containerClass, class string) int {
	containers := d.FindAll(containerClass)
	for _, c := range containers {
		BindHover(c, class)
	}
	return len(containers)
}
